// Package authz decides who may invoke which lifecycle operation. The
// lifecycle itself never looks at roles.
package authz

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleAdmin     Role = "admin"
	RoleTherapist Role = "therapist" // sees only appointments assigned to them
)

type Action string

const (
	ActionCreateAppointment   Action = "appointment.create"
	ActionQueryAppointments   Action = "appointment.query"
	ActionCancelOwn           Action = "appointment.cancel_own"
	ActionViewAppointment     Action = "appointment.view"
	ActionListPending         Action = "appointment.list_pending"
	ActionAssignTherapist     Action = "appointment.assign_therapist"
	ActionConfirmTime         Action = "appointment.confirm_time"
	ActionUpdateStatus        Action = "appointment.update_status"
	ActionUpdateAdminFields   Action = "appointment.update_admin_fields"
	ActionDeleteAppointment   Action = "appointment.delete"
	ActionListTherapists      Action = "therapist.list"
	ActionViewFreeSlots       Action = "therapist.free_slots"
	ActionUpdateTherapistFees Action = "therapist.update_pricing"
	ActionListOwnAppointments Action = "therapist.own_appointments"
)

// Policy maps an action to the roles allowed to perform it. Anything not
// listed is denied.
type Policy map[Action]map[Role]bool

var (
	anyone        = map[Role]bool{RoleAnonymous: true, RoleAdmin: true, RoleTherapist: true}
	adminOnly     = map[Role]bool{RoleAdmin: true}
	therapistOnly = map[Role]bool{RoleTherapist: true}
)

// DefaultPolicy lets requesters book, look up and withdraw their own
// appointments and browse therapists. A therapist may list the appointments
// assigned to them; every other operation is admin-only.
var DefaultPolicy = Policy{
	ActionCreateAppointment:   anyone,
	ActionQueryAppointments:   anyone,
	ActionCancelOwn:           anyone,
	ActionListTherapists:      anyone,
	ActionViewFreeSlots:       anyone,
	ActionViewAppointment:     adminOnly,
	ActionListPending:         adminOnly,
	ActionAssignTherapist:     adminOnly,
	ActionConfirmTime:         adminOnly,
	ActionUpdateStatus:        adminOnly,
	ActionUpdateAdminFields:   adminOnly,
	ActionDeleteAppointment:   adminOnly,
	ActionUpdateTherapistFees: adminOnly,
	ActionListOwnAppointments: therapistOnly,
}

func (p Policy) Allowed(a Action, r Role) bool {
	return p[a][r]
}
