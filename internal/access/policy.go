package access

// Policy derives the read and write rules attached to a new grant from the
// caller who requests it.
type Policy func(caller Caller) (read Rule, write Rule)

// Policy names accepted by the presign endpoint.
const (
	PolicyOwner      = "owner"
	PolicyPublic     = "public"
	PolicyPublicRead = "public-read"
)

// OwnerOnlyPolicy restricts both reads and writes to the issuing user.
func OwnerOnlyPolicy(caller Caller) (Rule, Rule) {
	return ownerRule(caller), ownerRule(caller)
}

// PublicPolicy lets anyone read or write.
func PublicPolicy(Caller) (Rule, Rule) {
	return Public{}, Public{}
}

// PublicReadOwnerWritePolicy lets anyone read while only the issuer may
// upload or delete. Entity images use it.
func PublicReadOwnerWritePolicy(caller Caller) (Rule, Rule) {
	return Public{}, ownerRule(caller)
}

// PolicyByName resolves a policy name; an empty name selects PublicReadOwnerWritePolicy.
func PolicyByName(name string) (Policy, bool) {
	switch name {
	case "", PolicyPublicRead:
		return PublicReadOwnerWritePolicy, true
	case PolicyOwner:
		return OwnerOnlyPolicy, true
	case PolicyPublic:
		return PublicPolicy, true
	default:
		return nil, false
	}
}

// ownerRule yields a UserOnly rule with a nil id for anonymous callers, which
// locks the object for everyone.
func ownerRule(caller Caller) Rule {
	if id, ok := caller.Identity(); ok {
		return Owner(id)
	}
	return UserOnly{}
}
