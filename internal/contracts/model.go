package contracts

// ProbabilityModel is the single capability every model kind is adapted to
// at load time. row follows FeatureNames order.
// ⭐ SSOT: 평가기와 추론 서비스는 이 인터페이스만 사용
type ProbabilityModel interface {
	PredictProbability(row []float64) (float64, error)
	FeatureNames() []string
}
