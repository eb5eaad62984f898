package emotion

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Prediction is the output of a sentiment model for one message.
type Prediction struct {
	Emotion       string             `json:"emotion"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"all_probabilities"`
}

// Classifier predicts the emotion of a message with a trained model.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
	Labels() map[int]string
	Close() error
}

// DefaultClassifierTimeout bounds a single prediction request.
const DefaultClassifierTimeout = 10 * time.Second

// RemoteClassifier calls a model server over HTTP. The server exposes
// POST /predict taking {"text": ...} and returning {"probabilities": [...]},
// and optionally GET /labels returning {"id2label": {"0": "anger", ...}}.
type RemoteClassifier struct {
	baseURL string
	client  *fasthttp.Client
	timeout time.Duration
	labels  map[int]string
}

// NewRemoteClassifier creates a client for the model server at baseURL and
// fetches its label mapping. DefaultLabels is used when the server does not
// publish one.
func NewRemoteClassifier(baseURL string, timeout time.Duration) *RemoteClassifier {
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	c := &RemoteClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &fasthttp.Client{
			Name:         "bisimo-emotion",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		timeout: timeout,
		labels:  DefaultLabels(),
	}
	if labels, err := c.fetchLabels(); err == nil && len(labels) > 0 {
		c.labels = labels
	}
	return c
}

// Labels returns the class index mapping of the model.
func (c *RemoteClassifier) Labels() map[int]string {
	out := make(map[int]string, len(c.labels))
	for k, v := range c.labels {
		out[k] = v
	}
	return out
}

// Classify sends text to the model and returns the arg-max label.
func (c *RemoteClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Prediction{}, err
	}

	var out struct {
		Probabilities []float64 `json:"probabilities"`
	}
	if err := c.do(ctx, fasthttp.MethodPost, "/predict", body, &out); err != nil {
		return Prediction{}, err
	}
	if len(out.Probabilities) == 0 {
		return Prediction{}, fmt.Errorf("classifier returned no probabilities")
	}
	return predictionFrom(out.Probabilities, c.labels), nil
}

// Close releases idle connections.
func (c *RemoteClassifier) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *RemoteClassifier) fetchLabels() (map[int]string, error) {
	var out struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := c.do(context.Background(), fasthttp.MethodGet, "/labels", nil, &out); err != nil {
		return nil, err
	}
	labels := make(map[int]string, len(out.ID2Label))
	for k, v := range out.ID2Label {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid label id %q", k)
		}
		labels[id] = strings.ToLower(strings.TrimSpace(v))
	}
	return labels, nil
}

func (c *RemoteClassifier) do(ctx context.Context, method, path string, body []byte, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("classifier %s: %w", path, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return fmt.Errorf("classifier %s: status %d", path, code)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("classifier %s: decode response: %w", path, err)
	}
	return nil
}

// predictionFrom picks the most probable class. Labels are normalized and
// the per-class probabilities rounded to three decimals.
func predictionFrom(probs []float64, labels map[int]string) Prediction {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	all := make(map[string]float64, len(probs))
	for i, p := range probs {
		all[Normalize(labelFor(labels, i))] = math.Round(p*1000) / 1000
	}
	return Prediction{
		Emotion:       Normalize(labelFor(labels, best)),
		Confidence:    probs[best],
		Probabilities: all,
	}
}

func labelFor(labels map[int]string, i int) string {
	if l, ok := labels[i]; ok {
		return l
	}
	return "label_" + strconv.Itoa(i)
}
