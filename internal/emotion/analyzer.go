package emotion

import (
	"context"
	"log/slog"
	"strings"

	"github.com/paranroman/bisimo/internal/logging"
)

// Detection methods reported alongside a result.
const (
	MethodKeywordOverride = "keyword_override"
	MethodHybrid          = "hybrid"
	MethodModel           = "indobert"
	MethodKeyword         = "keyword"
	MethodModelLow        = "indobert_low"
	MethodDefault         = "default"
)

// Confidence values used when the model is not the source of a result.
const (
	overrideConfidence = 0.9
	keywordConfidence  = 0.7
	defaultConfidence  = 0.5
	modelThreshold     = 0.5
)

// Result is the final emotion assigned to a message.
type Result struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"detection_method"`
}

// Breakdown exposes every intermediate signal behind a Result.
type Breakdown struct {
	Result
	Keyword string      `json:"keyword_result"`
	Model   *Prediction `json:"indobert_result"`
}

// Analyzer combines keyword matching with an optional Classifier.
type Analyzer struct {
	classifier Classifier
	logger     *slog.Logger
}

// NewAnalyzer creates an Analyzer. classifier may be nil, in which case only
// keywords are used.
func NewAnalyzer(classifier Classifier, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Analyzer{classifier: classifier, logger: logger}
}

// HasModel reports whether a classifier is configured.
func (a *Analyzer) HasModel() bool {
	return a.classifier != nil
}

// Labels returns the classifier's label mapping, or nil without a model.
func (a *Analyzer) Labels() map[int]string {
	if a.classifier == nil {
		return nil
	}
	return a.classifier.Labels()
}

// Detect returns the emotion of text.
func (a *Analyzer) Detect(ctx context.Context, text string) Result {
	return a.Explain(ctx, text).Result
}

// Explain returns the emotion of text together with the keyword and model
// signals it was derived from. A failing classifier is logged and its
// prediction left empty; the model rules still apply.
func (a *Analyzer) Explain(ctx context.Context, text string) Breakdown {
	b := Breakdown{Keyword: DetectKeyword(text)}

	if a.classifier != nil {
		pred, err := a.classifier.Classify(ctx, text)
		if err != nil {
			a.logger.Warn("emotion model unavailable", logging.Err(err))
		} else {
			b.Model = &pred
		}
	}

	b.Result = combine(strings.ToLower(text), b.Keyword, a.classifier != nil, b.Model)
	return b
}

// combine applies the hybrid rules. With a configured model, model is nil
// when the classifier call failed.
func combine(lower, keyword string, hasModel bool, model *Prediction) Result {
	if !hasModel {
		if keyword != "" {
			return Result{keyword, keywordConfidence, MethodKeyword}
		}
		return Result{Neutral, defaultConfidence, MethodDefault}
	}

	var predicted string
	var confidence float64
	if model != nil {
		predicted, confidence = model.Emotion, model.Confidence
	}

	if keyword != "" && keyword != predicted && hasHappinessIndicator(lower) {
		return Result{Happiness, overrideConfidence, MethodKeywordOverride}
	}
	if predicted != "" && confidence >= modelThreshold {
		if predicted == Neutral && keyword != "" {
			return Result{keyword, confidence, MethodHybrid}
		}
		return Result{predicted, confidence, MethodModel}
	}
	if keyword != "" {
		return Result{keyword, keywordConfidence, MethodKeyword}
	}
	if predicted != "" {
		return Result{predicted, confidence, MethodModelLow}
	}
	return Result{Neutral, defaultConfidence, MethodDefault}
}
