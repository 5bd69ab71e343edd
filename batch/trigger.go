package batch

// TriggerBinding is the frozen association of a cron expression with a job
// definition. Instances are created by TriggerBinder.Build and are immutable
// and safe for concurrent use.
//
// The cron expression is stored verbatim; syntax validation is the
// scheduler's job at registration time.
type TriggerBinding struct {
	name           string
	cronExpression string
	jobDefinition  *JobDefinition
}

// Name returns the optional display name. When empty, the scheduler assigns
// an identifier at registration.
func (t *TriggerBinding) Name() string { return t.name }

// CronExpression returns the raw cron expression.
func (t *TriggerBinding) CronExpression() string { return t.cronExpression }

// JobDefinition returns the bound job definition.
func (t *TriggerBinding) JobDefinition() *JobDefinition { return t.jobDefinition }

// TriggerBinder combines a cron expression with a JobDefinition into a
// schedulable TriggerBinding.
type TriggerBinder struct {
	name           string
	cronExpression string
	jobDefinition  *JobDefinition
}

// NewTriggerBinder returns an empty binder.
func NewTriggerBinder() *TriggerBinder {
	return &TriggerBinder{}
}

// SetName stores an optional display name.
func (b *TriggerBinder) SetName(name string) *TriggerBinder {
	b.name = name
	return b
}

// SetCronExpression stores the raw cron string without local validation.
func (b *TriggerBinder) SetCronExpression(expr string) *TriggerBinder {
	b.cronExpression = expr
	return b
}

// SetJobDefinition stores the job definition reference.
func (b *TriggerBinder) SetJobDefinition(def *JobDefinition) *TriggerBinder {
	b.jobDefinition = def
	return b
}

// Build returns an immutable TriggerBinding, or ErrIncompleteTrigger if the
// cron expression or the job definition is absent. Calls may be made in any
// order before Build.
func (b *TriggerBinder) Build() (*TriggerBinding, error) {
	if b.cronExpression == "" {
		return nil, incompleteTriggerError("cron expression")
	}
	if b.jobDefinition == nil {
		return nil, incompleteTriggerError("job definition")
	}
	return &TriggerBinding{
		name:           b.name,
		cronExpression: b.cronExpression,
		jobDefinition:  b.jobDefinition,
	}, nil
}
