package auth

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// keyEntry is one resolved access key. An empty allowed list means the key
// works from any source address.
type keyEntry struct {
	editor  string
	allowed []*net.IPNet
}

// EditorResolver resolves access keys to editor names
type EditorResolver struct {
	mu       sync.RWMutex
	keys     map[string]keyEntry
	loaded   bool
	yamlPath string
}

// NewEditorResolver creates a new editor resolver.
// The keys file is looked up in order:
// 1. The path argument (normally from config)
// 2. Path specified in ACCESS_KEYS_PATH env variable
// 3. access.yaml in the current working directory
func NewEditorResolver(path string) *EditorResolver {
	resolver := &EditorResolver{
		keys:     make(map[string]keyEntry),
		loaded:   false,
		yamlPath: "",
	}

	yamlPath := path
	if yamlPath == "" {
		if envPath := os.Getenv("ACCESS_KEYS_PATH"); envPath != "" {
			yamlPath = envPath
			log.Printf("Using access keys path from ACCESS_KEYS_PATH: %s", yamlPath)
		} else {
			cwd, err := os.Getwd()
			if err != nil {
				log.Printf("Warning: Cannot determine working directory: %v", err)
				return resolver
			}
			yamlPath = filepath.Join(cwd, "access.yaml")
			log.Printf("Looking for access.yaml in current working directory: %s", yamlPath)
		}
	}

	// Remember the path even when the first load fails so a later Reload
	// picks the file up once it appears.
	resolver.yamlPath = yamlPath
	if err := resolver.loadConfig(yamlPath); err != nil {
		log.Printf("ERROR: access keys not loaded from %s: %v", yamlPath, err)
		log.Printf("IMPORTANT: All authenticated routes will be BLOCKED until the keys file is present at: %s", yamlPath)
	} else {
		log.Printf("SUCCESS: Loaded access keys from: %s (%d entries)", yamlPath, resolver.Count())
	}

	return resolver
}

// yamlKeyEntry is the extended per-key form in the YAML file.
type yamlKeyEntry struct {
	Editor     string   `yaml:"editor"`
	AllowedIPs []string `yaml:"allowed_ips"`
}

// loadConfig loads the YAML configuration file. Each entry is either the
// short form `"key": "editor"` or the extended form with an editor name and
// an allowed_ips list. A parse error leaves the previous keys in place.
func (r *EditorResolver) loadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	keys := make(map[string]keyEntry, len(raw))
	for key, node := range raw {
		switch node.Kind {
		case yaml.ScalarNode:
			var editor string
			if err := node.Decode(&editor); err != nil {
				return fmt.Errorf("access key entry %q: %w", key, err)
			}
			if editor == "" {
				return fmt.Errorf("access key entry %q: editor name is empty", key)
			}
			keys[key] = keyEntry{editor: editor}
		case yaml.MappingNode:
			var entry yamlKeyEntry
			if err := node.Decode(&entry); err != nil {
				return fmt.Errorf("access key entry %q: %w", key, err)
			}
			if entry.Editor == "" {
				return fmt.Errorf("access key entry %q: editor name is empty", key)
			}
			allowed, err := parseAllowlist(entry.AllowedIPs)
			if err != nil {
				return fmt.Errorf("access key entry %q: %w", key, err)
			}
			keys[key] = keyEntry{editor: entry.Editor, allowed: allowed}
		default:
			return fmt.Errorf("access key entry %q: value must be an editor name or a mapping", key)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.keys = keys
	r.loaded = true

	return nil
}

// parseAllowlist converts plain IPs and CIDR ranges into networks.
func parseAllowlist(specs []string) ([]*net.IPNet, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	nets := make([]*net.IPNet, 0, len(specs))
	for _, spec := range specs {
		if strings.Contains(spec, "/") {
			_, network, err := net.ParseCIDR(spec)
			if err != nil {
				return nil, fmt.Errorf("allowed_ips %q: %w", spec, err)
			}
			nets = append(nets, network)
			continue
		}

		ip := net.ParseIP(spec)
		if ip == nil {
			return nil, fmt.Errorf("allowed_ips %q: not an IP address or CIDR range", spec)
		}
		bits := 128
		if ip4 := ip.To4(); ip4 != nil {
			ip = ip4
			bits = 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}

	return nets, nil
}

// Reload reloads the access keys from disk
func (r *EditorResolver) Reload() error {
	if r.yamlPath == "" {
		return nil // No config file to reload
	}
	return r.loadConfig(r.yamlPath)
}

// IsLoaded returns true if the keys file was successfully loaded
func (r *EditorResolver) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Count returns the number of loaded access keys
func (r *EditorResolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// ValidateKey resolves a raw access key to an editor name without checking
// the source address. Returns (editor, found)
func (r *EditorResolver) ValidateKey(key string) (string, bool) {
	if key == "" {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, found := r.keys[key]
	return entry.editor, found
}

// Authorize resolves an access key and enforces its IP allowlist, if any.
// A key with an allowlist and an unparseable client IP is rejected.
func (r *EditorResolver) Authorize(key, clientIP string) (string, bool) {
	if key == "" {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, found := r.keys[key]
	if !found {
		return "", false
	}
	if len(entry.allowed) == 0 {
		return entry.editor, true
	}

	ip := net.ParseIP(clientIP)
	if ip == nil {
		return "", false
	}
	for _, network := range entry.allowed {
		if network.Contains(ip) {
			return entry.editor, true
		}
	}
	return "", false
}

// ResolveEditor extracts the access key from the request and resolves it
// to an editor name. Returns (editor, found)
func (r *EditorResolver) ResolveEditor(req *http.Request) (string, bool) {
	clientIP := extractClientIP(req)
	editor, found := r.Authorize(extractAccessKey(req), clientIP)
	if !found {
		log.Printf("Warning: Rejected access key from IP: %s", clientIP)
	}
	return editor, found
}

// GetClientIP returns the client IP address from the request
func (r *EditorResolver) GetClientIP(req *http.Request) string {
	return extractClientIP(req)
}

// extractAccessKey pulls the access key from the request.
// Checked in order: X-Access-Key header, key query parameter, access_key cookie.
func extractAccessKey(req *http.Request) string {
	if k := req.Header.Get("X-Access-Key"); k != "" {
		return k
	}
	if k := req.URL.Query().Get("key"); k != "" {
		return k
	}
	if c, err := req.Cookie("access_key"); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// extractClientIP extracts the real client IP from the request
// Handles X-Forwarded-For and X-Real-IP headers for reverse proxy scenarios
func extractClientIP(req *http.Request) string {
	// Try X-Forwarded-For first (for reverse proxies)
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	// Try X-Real-IP
	if xri := req.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr // Return as-is if split fails
	}

	return ip
}

// parseFirstIP extracts the first IP from a comma-separated list
func parseFirstIP(xff string) string {
	for i := 0; i < len(xff); i++ {
		if xff[i] == ',' {
			return xff[:i]
		}
	}
	return xff
}
