package domain

// UnknownDimension is the breakdown key used for events with a blank
// model/endpoint/provider value. Blanks are counted, never dropped.
const UnknownDimension = "None"

// MetricAccumulator collects running totals for one bucket or one
// dimension value. Mutated incrementally, one event at a time.
type MetricAccumulator struct {
	TotalCost        float64
	TotalRequests    int64
	TotalTokens      int64
	PromptTokens     int64
	CompletionTokens int64
	InputCost        float64
	OutputCost       float64
	LatencySum       float64
	LatencyCount     int64

	Models    StringSet
	Endpoints StringSet
	Providers StringSet
}

func NewMetricAccumulator() *MetricAccumulator {
	return &MetricAccumulator{
		Models:    NewStringSet(),
		Endpoints: NewStringSet(),
		Providers: NewStringSet(),
	}
}

// AvgLatency returns 0 when no latency samples were observed.
func (m *MetricAccumulator) AvgLatency() float64 {
	if m.LatencyCount == 0 {
		return 0
	}
	return m.LatencySum / float64(m.LatencyCount)
}

// StringSet is an insertion-tracking set of dimension values.
type StringSet map[string]struct{}

func NewStringSet() StringSet { return make(StringSet) }

func (s StringSet) Add(v string) { s[v] = struct{}{} }

func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}
