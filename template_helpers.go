package auth

// TemplateUserKey is the global data key templates read the current
// session from.
var TemplateUserKey = "current_user"

// TemplateHelpers returns helper functions for template engines that
// accept a global data map, e.g. the django engine the mailer renders
// with.
//
// In templates:
//
//	{% if current_user %}
//	{% if current_user|has_role:"admin" %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticatedHelper,
		"has_role":         hasRoleHelper,
		"is_at_least":      isAtLeastHelper,

		"roles": map[string]string{
			"user":  string(RoleUser),
			"admin": string(RoleAdmin),
		},
	}
}

// TemplateHelpersWithUser returns the helpers with a session snapshot
// injected as current_user.
func TemplateHelpersWithUser(snapshot *SessionSnapshot) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = snapshot
	return helpers
}

func isAuthenticatedHelper(user any) bool {
	snapshot, ok := user.(*SessionSnapshot)
	return ok && snapshot != nil
}

func hasRoleHelper(user any, role string) bool {
	snapshot, ok := user.(*SessionSnapshot)
	if !ok || snapshot == nil {
		return false
	}
	return string(snapshot.Role) == role
}

func isAtLeastHelper(user any, role string) bool {
	snapshot, ok := user.(*SessionSnapshot)
	if !ok || snapshot == nil {
		return false
	}
	return snapshot.Role.IsAtLeast(UserRole(role))
}
