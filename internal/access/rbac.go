package access

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Resources and actions checked by the web layer.
const (
	// ResourceTimesheet is the caller's own timesheet, ResourceTimesheets everyone's.
	ResourceTimesheet      = "timesheet"
	ResourceTimesheets     = "timesheets"
	ResourceAccessRequests = "access_requests"

	ActionView   = "view"
	ActionEdit   = "edit"
	ActionExport = "export"
	ActionManage = "manage"
	ActionReview = "review"

	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

type Permission struct {
	Resource string   `yaml:"resource"`
	Actions  []string `yaml:"actions"`
}

type Role struct {
	Description string       `yaml:"description"`
	Permissions []Permission `yaml:"permissions"`
}

type RBACPolicy struct {
	DefaultRole string          `yaml:"default_role"`
	Roles       map[string]Role `yaml:"roles"`
	Users       map[string]struct {
		Roles []string `yaml:"roles"`
	} `yaml:"users"`
	Inheritance map[string][]string `yaml:"inheritance"`
}

// RBAC answers "can this username do action on resource" from a YAML policy.
type RBAC struct {
	policy      *RBACPolicy
	userRoles   map[string][]string // username -> roles
	mu          sync.RWMutex
	policyCache map[string]map[string]bool // username -> "resource:action" -> allowed
}

var (
	rbacInstance *RBAC
	rbacOnce     sync.Once
)

// GetRBAC returns the process wide RBAC instance
func GetRBAC() *RBAC {
	rbacOnce.Do(func() {
		rbacInstance = NewRBAC()
	})
	return rbacInstance
}

func NewRBAC() *RBAC {
	return &RBAC{
		userRoles:   make(map[string][]string),
		policyCache: make(map[string]map[string]bool),
	}
}

// LoadPolicy loads the policy from a YAML file. An empty path loads the
// built-in policy.
func (r *RBAC) LoadPolicy(filepath string) error {
	if filepath == "" {
		return r.LoadPolicyData(defaultPolicy)
	}
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}
	return r.LoadPolicyData(data)
}

// LoadPolicyData replaces the policy and every role assignment.
func (r *RBAC) LoadPolicyData(data []byte) error {
	var policy RBACPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("failed to parse policy file: %w", err)
	}
	if policy.DefaultRole != "" {
		if _, ok := policy.Roles[policy.DefaultRole]; !ok {
			return fmt.Errorf("default role %q is not defined", policy.DefaultRole)
		}
	}

	r.mu.Lock()
	r.policy = &policy
	r.userRoles = make(map[string][]string)
	for username, userData := range policy.Users {
		r.userRoles[username] = userData.Roles
	}
	r.policyCache = make(map[string]map[string]bool)
	r.mu.Unlock()

	slog.Info("RBAC policy loaded", "roles", len(policy.Roles), "users", len(policy.Users))
	return nil
}

// AssignRole adds roles to a user
func (r *RBAC) AssignRole(username string, roles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userRoles[username] = append(r.userRoles[username], roles...)
	delete(r.policyCache, username)

	slog.Debug("Roles assigned", "username", username, "roles", roles)
}

// SetRoles replaces all roles for a user
func (r *RBAC) SetRoles(username string, roles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userRoles[username] = roles
	delete(r.policyCache, username)

	slog.Debug("Roles set", "username", username, "roles", roles)
}

// GetUserRoles returns all roles of a user including inherited ones, sorted.
func (r *RBAC) GetUserRoles(username string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rolesLocked(username)
}

func (r *RBAC) rolesLocked(username string) []string {
	directRoles := r.userRoles[username]
	if len(directRoles) == 0 && r.policy != nil && r.policy.DefaultRole != "" {
		directRoles = []string{r.policy.DefaultRole}
	}

	allRoles := make(map[string]bool)
	for _, role := range directRoles {
		allRoles[role] = true
		r.addInheritedRoles(role, allRoles)
	}

	result := make([]string, 0, len(allRoles))
	for role := range allRoles {
		result = append(result, role)
	}
	sort.Strings(result)
	return result
}

func (r *RBAC) addInheritedRoles(role string, roles map[string]bool) {
	if r.policy == nil || r.policy.Inheritance == nil {
		return
	}
	for _, inheritedRole := range r.policy.Inheritance[role] {
		if !roles[inheritedRole] {
			roles[inheritedRole] = true
			r.addInheritedRoles(inheritedRole, roles)
		}
	}
}

// Can checks if a user can perform an action on a resource
func (r *RBAC) Can(username, resource, action string) bool {
	// Write lock: the result is cached.
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.policy == nil {
		slog.Warn("RBAC policy not loaded")
		return false
	}

	cacheKey := resource + ":" + action
	if cache, exists := r.policyCache[username]; exists {
		if allowed, found := cache[cacheKey]; found {
			return allowed
		}
	}

	allowed := false
roles:
	for _, roleName := range r.rolesLocked(username) {
		role, exists := r.policy.Roles[roleName]
		if !exists {
			continue
		}
		for _, perm := range role.Permissions {
			if perm.Resource != "*" && perm.Resource != resource {
				continue
			}
			for _, act := range perm.Actions {
				if act == "*" || act == action {
					allowed = true
					break roles
				}
			}
		}
	}

	if r.policyCache[username] == nil {
		r.policyCache[username] = make(map[string]bool)
	}
	r.policyCache[username][cacheKey] = allowed

	return allowed
}

// IsAdmin reports whether the user may manage every timesheet.
func (r *RBAC) IsAdmin(username string) bool {
	return r.Can(username, ResourceTimesheets, ActionManage)
}
