package game

import "fmt"

// MaxAttackers is the capacity of the attacker list: the main attacker and
// at most one supporting attacker.
const MaxAttackers = 2

// Role is the part a player plays in the current round
type Role string

const (
	RoleNone     Role = ""
	RoleAttacker Role = "attacker"
	RoleDefender Role = "defender"
)

// Roles holds the attacker/defender assignment of a round. The attacker list
// has a fixed capacity of MaxAttackers.
type Roles struct {
	attackers         [MaxAttackers]string
	numAttackers      int
	originalAttackers [MaxAttackers]string
	numOriginal       int
	defender          string
}

// SetAttackers replaces the attacker list
func (r *Roles) SetAttackers(pids ...string) error {
	if len(pids) == 0 || len(pids) > MaxAttackers {
		return fmt.Errorf("attacker count must be between 1 and %d, got %d", MaxAttackers, len(pids))
	}
	r.attackers = [MaxAttackers]string{}
	r.numAttackers = copy(r.attackers[:], pids)
	return nil
}

// SnapshotOriginal records the current attackers as the round's original
// attackers, used for a fair deal order after transfers.
func (r *Roles) SnapshotOriginal() {
	r.originalAttackers = r.attackers
	r.numOriginal = r.numAttackers
}

// SetDefender sets the defender
func (r *Roles) SetDefender(pid string) {
	r.defender = pid
}

// Attackers returns the current attackers in order
func (r *Roles) Attackers() []string {
	return r.attackers[:r.numAttackers]
}

// OriginalAttackers returns the attackers at the start of the round
func (r *Roles) OriginalAttackers() []string {
	return r.originalAttackers[:r.numOriginal]
}

// Defender returns the defender
func (r *Roles) Defender() string {
	return r.defender
}

// Attacker returns the i-th attacker, or "" when out of range
func (r *Roles) Attacker(i int) string {
	if i < 0 || i >= r.numAttackers {
		return ""
	}
	return r.attackers[i]
}

// RoleOf returns the role of pid and, for attackers, its index in the list
func (r *Roles) RoleOf(pid string) (Role, int) {
	if pid == r.defender {
		return RoleDefender, 0
	}
	for i, a := range r.Attackers() {
		if a == pid {
			return RoleAttacker, i
		}
	}
	return RoleNone, 0
}

// RolesInfo is the wire form of Roles
type RolesInfo struct {
	Attackers         []string `json:"attackers"`
	OriginalAttackers []string `json:"originalAttackers"`
	Defender          string   `json:"defender"`
}

// Info returns a copy of the roles for sending to clients
func (r *Roles) Info() RolesInfo {
	return RolesInfo{
		Attackers:         append([]string(nil), r.Attackers()...),
		OriginalAttackers: append([]string(nil), r.OriginalAttackers()...),
		Defender:          r.defender,
	}
}
