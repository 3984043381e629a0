package container

import (
	"fmt"
	"reflect"
	"sync"
)

// Small DI container using constructor injection. Supports:
//  - Provide constructor functions returning (T) or (T, error)
//  - Singleton scope, keyed by the constructor's concrete return type
//  - Resolve by type (concrete or interface) and Invoke to call functions with deps

type Container struct {
	mu        sync.RWMutex
	prov      map[reflect.Type]provider
	instances map[reflect.Type]reflect.Value
}

type provider struct {
	fn        reflect.Value
	singleton bool
}

func New() *Container {
	return &Container{prov: make(map[reflect.Type]provider), instances: make(map[reflect.Type]reflect.Value)}
}

// Provide registers a constructor function for a type.
// The constructor may have parameters which will be resolved from the container.
// The function may return either (T) or (T, error).
// If multiple return values are present, the last must be error.
func (c *Container) Provide(constructor interface{}, singleton bool) error {
	v := reflect.ValueOf(constructor)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: constructor must be a function")
	}
	// Determine provided type from first return value
	ft := v.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 {
		return fmt.Errorf("container: constructor must return (T) or (T, error)")
	}
	outType := ft.Out(0)
	if ft.NumOut() == 2 {
		if ft.Out(1) != reflect.TypeOf((*error)(nil)).Elem() {
			return fmt.Errorf("container: second return value must be error")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.prov[outType]; exists {
		return fmt.Errorf("container: provider already exists for %v", outType)
	}
	c.prov[outType] = provider{fn: v, singleton: singleton}
	return nil
}

// Resolve populates the given pointer with an instance of the requested type.
// Example: var m *Matcher; c.Resolve(&m)
func (c *Container) Resolve(target interface{}) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("container: target must be a non-nil pointer")
	}
	want := ptr.Elem().Type()
	val, err := c.get(want, make(map[reflect.Type]bool))
	if err != nil {
		return err
	}
	ptr.Elem().Set(val)
	return nil
}

// Invoke calls a function, resolving its parameters from the container.
func (c *Container) Invoke(fn interface{}) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: Invoke requires a function")
	}
	ft := v.Type()
	args := make([]reflect.Value, ft.NumIn())
	seen := make(map[reflect.Type]bool)
	for i := 0; i < ft.NumIn(); i++ {
		val, err := c.get(ft.In(i), seen)
		if err != nil {
			return err
		}
		args[i] = val
	}
	outs := v.Call(args)
	// If last return is error, check it
	if n := len(outs); n > 0 {
		last := outs[n-1]
		if last.IsValid() && last.Type() == reflect.TypeOf((*error)(nil)).Elem() {
			if !last.IsNil() {
				return last.Interface().(error)
			}
		}
	}
	return nil
}

func (c *Container) get(t reflect.Type, seen map[reflect.Type]bool) (reflect.Value, error) {
	c.mu.RLock()
	// Singleton already built?
	if v, ok := c.instances[t]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	prov, ok := c.prov[t]
	provType := t
	if !ok && t.Kind() == reflect.Interface {
		// A singleton built under its concrete type satisfies the interface too.
		for it, v := range c.instances {
			if it.Implements(t) {
				c.mu.RUnlock()
				return v, nil
			}
		}
		for pt, p := range c.prov {
			if pt.Implements(t) {
				prov, provType, ok = p, pt, true
				break
			}
		}
	}
	c.mu.RUnlock()
	if !ok {
		return reflect.Value{}, fmt.Errorf("container: no provider for %v", t)
	}

	// Detect simple cycles
	if seen[provType] {
		return reflect.Value{}, fmt.Errorf("container: cyclic dependency for %v", t)
	}
	seen[provType] = true

	fn := prov.fn
	ft := fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		depVal, err := c.get(ft.In(i), seen)
		if err != nil {
			return reflect.Value{}, err
		}
		args[i] = depVal
	}
	outs := fn.Call(args)
	res := outs[0]
	if len(outs) == 2 {
		if err, _ := outs[1].Interface().(error); err != nil {
			return reflect.Value{}, err
		}
	}

	// Cache under the provider's own type so a later lookup through either the
	// concrete type or an interface it implements sees the same instance.
	if prov.singleton {
		c.mu.Lock()
		c.instances[provType] = res
		c.mu.Unlock()
	}
	return res, nil
}
