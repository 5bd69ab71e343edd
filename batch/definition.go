package batch

// Keys reserved by the original JobDataMap contract to smuggle identity
// metadata through the parameter mapping. Identity now travels as structured
// fields on JobDefinition and ExecutionRequest, but the keys stay rejected so
// configurations written against the old contract fail the same way.
const (
	jobNameKey       = "jobName"
	jobParametersKey = "jobParameters"
)

// JobDefinition is the frozen (name, parameter set) pair describing one
// schedulable unit of work. Instances are created by
// JobDefinitionBuilder.Build and are immutable and safe for concurrent use.
type JobDefinition struct {
	name             string
	params           *ParameterSet
	durable          bool
	requestsRecovery bool
}

// Name returns the job's identifying name.
func (d *JobDefinition) Name() string { return d.name }

// Parameters returns a copy of the job's parameter set. Mutating the copy
// does not affect the definition.
func (d *JobDefinition) Parameters() *ParameterSet { return d.params.Clone() }

// Durable reports whether the job stays registered with the scheduler when
// no trigger references it.
func (d *JobDefinition) Durable() bool { return d.durable }

// RequestsRecovery reports whether an execution interrupted mid-run should
// be re-attempted after scheduler recovery.
func (d *JobDefinition) RequestsRecovery() bool { return d.requestsRecovery }

// JobDefinitionBuilder accumulates a job's identity and parameters and
// freezes them into a JobDefinition.
//
// The builder is reusable: Build does not consume state, so a second Build
// reflects any AddParameter calls made in between. Each Build snapshots the
// parameter set, so previously built definitions are unaffected.
// The builder itself is not safe for concurrent use.
type JobDefinitionBuilder struct {
	name             string
	params           *ParameterSet
	durable          bool
	requestsRecovery bool
}

// NewJobDefinitionBuilder returns a builder with durability and recovery
// both defaulting to true.
func NewJobDefinitionBuilder() *JobDefinitionBuilder {
	return &JobDefinitionBuilder{
		params:           NewParameterSet(),
		durable:          true,
		requestsRecovery: true,
	}
}

// SetName stores the job name, overwriting any prior value.
func (b *JobDefinitionBuilder) SetName(name string) *JobDefinitionBuilder {
	b.name = name
	return b
}

// SetDurability stores the durability flag. Default: true.
func (b *JobDefinitionBuilder) SetDurability(durable bool) *JobDefinitionBuilder {
	b.durable = durable
	return b
}

// SetRequestsRecovery stores the recovery flag. Default: true.
func (b *JobDefinitionBuilder) SetRequestsRecovery(requestsRecovery bool) *JobDefinitionBuilder {
	b.requestsRecovery = requestsRecovery
	return b
}

// AddParameter classifies value and stores it under key, overwriting any
// prior value for that key. It returns ErrReservedKey for the identity keys
// and ErrUnsupportedParameterType when value cannot be classified; in both
// cases the accumulated parameter set is left unchanged.
func (b *JobDefinitionBuilder) AddParameter(key string, value any) error {
	p, err := classifyValue(value)
	if err != nil {
		return err
	}
	return b.AddParam(key, p)
}

// AddParam stores an already-typed parameter under key. It returns
// ErrReservedKey for the identity keys.
func (b *JobDefinitionBuilder) AddParam(key string, p Param) error {
	if key == jobNameKey || key == jobParametersKey {
		return reservedKeyError(key)
	}
	b.params.Set(key, p)
	return nil
}

// Build validates the accumulated state and returns an immutable
// JobDefinition. It returns ErrMissingJobName if no name was set. Build has
// no side effect on the builder.
func (b *JobDefinitionBuilder) Build() (*JobDefinition, error) {
	if b.name == "" {
		return nil, ErrMissingJobName
	}
	return &JobDefinition{
		name:             b.name,
		params:           b.params.Clone(),
		durable:          b.durable,
		requestsRecovery: b.requestsRecovery,
	}, nil
}
