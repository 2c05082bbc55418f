package linker

// GetRank orders binding strength for resolution. Local outranks global: a
// file-private definition must not be shadowed by an unrelated global of the
// same name arriving from another object. Weak is an overridable default and
// ranks last.
func GetRank(b Binding) int {
	switch b {
	case BindingLocal:
		return 3
	case BindingGlobal:
		return 2
	case BindingWeak:
		return 1
	}
	return 0
}
