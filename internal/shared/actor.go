package shared

// Actor identifies who performed a state-changing action: either a human user
// (by verified uid) or the scheduler acting on its own. Using a closed type
// instead of a sentinel uid string keeps automated actions distinguishable
// from real user actions everywhere downstream.
type Actor struct {
	uid    string
	system bool
}

// HumanActor builds an actor for a verified user id.
func HumanActor(uid string) Actor {
	return Actor{uid: uid}
}

// SystemActor is the automated actor used by the closing step.
func SystemActor() Actor {
	return Actor{system: true}
}

// IsSystem reports whether the action was automated.
func (a Actor) IsSystem() bool { return a.system }

// UID returns the human uid and whether one is present.
func (a Actor) UID() (string, bool) {
	if a.system {
		return "", false
	}
	return a.uid, a.uid != ""
}

// IsZero reports whether the actor is unset.
func (a Actor) IsZero() bool { return !a.system && a.uid == "" }

func (a Actor) String() string {
	if a.system {
		return "system"
	}
	return a.uid
}

// ActorFromRecord rebuilds an actor from its persisted representation.
func ActorFromRecord(kind, uid string) Actor {
	if kind == "system" {
		return SystemActor()
	}
	return HumanActor(uid)
}

// Record returns the persisted representation (kind, uid).
func (a Actor) Record() (string, string) {
	if a.system {
		return "system", ""
	}
	return "human", a.uid
}
