package approval

type Action string

const (
	ActionPending  Action = "pending"
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
)

func (a Action) Terminal() bool {
	return a == ActionApproved || a == ActionRejected
}

const (
	PeriodMorning   = "am"
	PeriodAfternoon = "pm"
	PeriodFullDay   = "full"
	PeriodCustom    = "custom"
)

// maxRangeDays bounds how many calendar days a {start,end} range may expand to.
const maxRangeDays = 366
