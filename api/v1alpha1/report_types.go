package v1alpha1

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// GroupVersion identifies the schema of every report in this package.
const GroupVersion = "capacityplanner.energymodels.io/v1alpha1"

// Report kinds.
const (
	KindPlanReport   = "PlanReport"
	KindSporesReport = "SporesReport"
)

var reportValidate = validator.New()

// CapacityStatus is the installed capacity of one (technology, location) pair.
type CapacityStatus struct {
	Technology string  `json:"technology"`
	Location   string  `json:"location"`
	ECap       float64 `json:"eCap"`

	// +optional
	SCap float64 `json:"sCap,omitempty"`
	// +optional
	RCap float64 `json:"rCap,omitempty"`
	// +optional
	RArea float64 `json:"rArea,omitempty"`
}

// CostStatus is the cost of one (technology, location) pair in one cost class.
type CostStatus struct {
	Technology   string  `json:"technology"`
	Location     string  `json:"location"`
	Class        string  `json:"class"`
	Total        float64 `json:"total"`
	Construction float64 `json:"construction"`
	Operation    float64 `json:"operation"`
}

// ProductionStatus summarizes production on one carrier over all pairs and timesteps.
type ProductionStatus struct {
	Carrier string  `json:"carrier"`
	Total   float64 `json:"total"`
	Peak    float64 `json:"peak"`
}

// PlanSpec records what was solved.
type PlanSpec struct {
	// Mode is plan or operate.
	// +kubebuilder:validation:Enum=plan;operate
	Mode string `json:"mode" validate:"oneof=plan operate"`

	// ObjectiveClass is the cost class minimized.
	// +kubebuilder:validation:MinLength=1
	ObjectiveClass string `json:"objectiveClass" validate:"required"`

	// CostLimits bounds the total of each listed class.
	// +optional
	CostLimits map[string]float64 `json:"costLimits,omitempty"`

	// +kubebuilder:validation:Minimum=1
	Timesteps   int `json:"timesteps" validate:"gte=1"`
	Variables   int `json:"variables"`
	Constraints int `json:"constraints"`
}

// PlanStatus is the outcome of a single solve.
type PlanStatus struct {
	// Termination is the solver termination condition, e.g. optimal or infeasible.
	Termination string  `json:"termination"`
	Objective   float64 `json:"objective"`

	// +optional
	Capacities []CapacityStatus `json:"capacities,omitempty"`
	// +optional
	Costs []CostStatus `json:"costs,omitempty"`
	// +optional
	Production []ProductionStatus `json:"production,omitempty"`

	// Conditions represent the latest observations of the run.
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty" patchStrategy:"merge" patchMergeKey:"type"`
}

// PlanReport is the report of one solved model definition.
type PlanReport struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   PlanSpec   `json:"spec"`
	Status PlanStatus `json:"status,omitzero"`
}

// NewPlanReport returns a report with type metadata set.
func NewPlanReport(name string, created time.Time) *PlanReport {
	return &PlanReport{
		TypeMeta:   metav1.TypeMeta{APIVersion: GroupVersion, Kind: KindPlanReport},
		ObjectMeta: metav1.ObjectMeta{Name: name, CreationTimestamp: metav1.NewTime(created)},
	}
}

// Validate checks the report against its schema.
func (r *PlanReport) Validate() error {
	if err := validateReport(r.TypeMeta, r.ObjectMeta, KindPlanReport, r.Status.Conditions); err != nil {
		return err
	}
	if err := reportValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid %s: %w", KindPlanReport, err)
	}
	return nil
}

// SporesSpec records the SPORES options of a run.
type SporesSpec struct {
	// +kubebuilder:validation:Minimum=0
	Iterations int `json:"iterations" validate:"gte=0"`
	// +kubebuilder:validation:Minimum=0
	Slack          float64 `json:"slack" validate:"gte=0"`
	ObjectiveClass string  `json:"objectiveClass" validate:"required"`
	ScoreClass     string  `json:"scoreClass" validate:"required,nefield=ObjectiveClass"`

	// +optional
	SkipCostOptimal bool `json:"skipCostOptimal,omitempty"`
}

// ScoreStatus is the diversity score of one pair.
type ScoreStatus struct {
	Technology string  `json:"technology"`
	Location   string  `json:"location"`
	Score      float64 `json:"score"`
}

// IterationStatus is the outcome of one SPORES iteration.
type IterationStatus struct {
	// Index is 0 for the cost-optimal solve.
	Index       int     `json:"index" validate:"gte=0"`
	Termination string  `json:"termination"`
	Objective   float64 `json:"objective"`

	// ObjectiveCost is the objective-class total of the iteration.
	ObjectiveCost float64 `json:"objectiveCost"`

	// ScoreTotal is the sum of the scores the iteration was solved with.
	ScoreTotal float64 `json:"scoreTotal"`

	// +optional
	Scores []ScoreStatus `json:"scores,omitempty"`
	// +optional
	Capacities []CapacityStatus `json:"capacities,omitempty"`
}

// SporesStatus is the outcome of a SPORES run.
type SporesStatus struct {
	// OptimalCost is C*, the objective-class total of iteration 0.
	OptimalCost float64 `json:"optimalCost"`

	// Limits are the cost ceilings of the slack-constrained iterations.
	// +optional
	Limits map[string]float64 `json:"limits,omitempty"`

	// +optional
	Iterations []IterationStatus `json:"iterations,omitempty" validate:"dive"`

	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty" patchStrategy:"merge" patchMergeKey:"type"`
}

// SporesReport is the report of a SPORES run. The object UID is the run ID.
type SporesReport struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   SporesSpec   `json:"spec"`
	Status SporesStatus `json:"status,omitzero"`
}

// NewSporesReport returns a report with type metadata set.
func NewSporesReport(name, runID string, created time.Time) *SporesReport {
	return &SporesReport{
		TypeMeta: metav1.TypeMeta{APIVersion: GroupVersion, Kind: KindSporesReport},
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			UID:               types.UID(runID),
			CreationTimestamp: metav1.NewTime(created),
		},
	}
}

// Validate checks the report against its schema.
func (r *SporesReport) Validate() error {
	if err := validateReport(r.TypeMeta, r.ObjectMeta, KindSporesReport, r.Status.Conditions); err != nil {
		return err
	}
	if err := reportValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid %s: %w", KindSporesReport, err)
	}
	return nil
}

func validateReport(tm metav1.TypeMeta, om metav1.ObjectMeta, kind string, conditions []metav1.Condition) error {
	switch {
	case tm.APIVersion != GroupVersion:
		return fmt.Errorf("invalid %s: apiVersion %q, want %q", kind, tm.APIVersion, GroupVersion)
	case tm.Kind != kind:
		return fmt.Errorf("invalid %s: kind %q", kind, tm.Kind)
	case om.Name == "":
		return fmt.Errorf("invalid %s: metadata.name is required", kind)
	}
	for _, c := range conditions {
		if c.Type == "" || c.Reason == "" {
			return fmt.Errorf("invalid %s: condition %q needs a type and a reason", kind, c.Type)
		}
		if c.Status != metav1.ConditionTrue && c.Status != metav1.ConditionFalse {
			return fmt.Errorf("invalid %s: condition %s has status %q", kind, c.Type, c.Status)
		}
	}
	return nil
}

// Condition types
const (
	// TypeSolved indicates whether every solve of the run reached optimality
	TypeSolved = "Solved"
)

// Condition reasons for Solved
const (
	// ReasonOptimal indicates every solve terminated optimally
	ReasonOptimal = "Optimal"
	// ReasonSolveFailed indicates a solve terminated without an optimal solution
	ReasonSolveFailed = "SolveFailed"
	// ReasonInvalidConfiguration indicates the model definition could not be built
	ReasonInvalidConfiguration = "InvalidConfiguration"
	// ReasonBackendError indicates the solver backend itself failed
	ReasonBackendError = "BackendError"
)
