// Package gemini implements the completion service on the Gemini API through
// google.golang.org/genai.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/bnema/smartani/internal/domain"
	"github.com/bnema/smartani/internal/ports"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// modelsAPI is the subset of *genai.Models the adapter uses.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	List(ctx context.Context, config *genai.ListModelsConfig) (genai.Page[genai.Model], error)
}

type clientFactory func(ctx context.Context, apiKey string) (modelsAPI, error)

type Options struct {
	Model       string
	Temperature float32
	TopP        float32
	TopK        float32
}

// Adapter keeps one genai client per API key so rotating credentials does
// not rebuild clients.
type Adapter struct {
	options   Options
	newClient clientFactory

	mu      sync.Mutex
	clients map[string]modelsAPI
}

var _ ports.CompletionService = (*Adapter)(nil)

func New(options Options) *Adapter {
	return newAdapter(options, newGenAIClient)
}

func newAdapter(options Options, factory clientFactory) *Adapter {
	if strings.TrimSpace(options.Model) == "" {
		options.Model = DefaultModel
	}

	return &Adapter{
		options:   options,
		newClient: factory,
		clients:   map[string]modelsAPI{},
	}
}

func newGenAIClient(ctx context.Context, apiKey string) (modelsAPI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

func (a *Adapter) Model() string {
	return a.options.Model
}

func (a *Adapter) client(ctx context.Context, credential domain.Credential) (modelsAPI, error) {
	if credential.IsPlaceholder() {
		return nil, fmt.Errorf("credential %s: %w", credential.Label(), domain.ErrPoolExhausted)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if client, ok := a.clients[credential.Token]; ok {
		return client, nil
	}

	client, err := a.newClient(ctx, credential.Token)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrorKindFatal, 0, "CLIENT_INIT", fmt.Errorf("create genai client for %s: %w", credential.Label(), err))
	}
	a.clients[credential.Token] = client
	return client, nil
}

func (a *Adapter) Generate(ctx context.Context, credential domain.Credential, req ports.CompletionRequest) (string, error) {
	contents := toContents(req.History)
	contents = append(contents, userContent(req.Message, req.Attachment))

	return a.generate(ctx, credential, contents, a.config(req.SystemInstruction, req.Temperature, req.MaxOutputTokens))
}

func (a *Adapter) generate(ctx context.Context, credential domain.Credential, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	client, err := a.client(ctx, credential)
	if err != nil {
		return "", err
	}

	resp, err := client.GenerateContent(ctx, a.options.Model, contents, config)
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", domain.NewServiceError(domain.ErrorKindFatal, 0, "EMPTY_RESPONSE", errors.New("completion returned no text"))
	}
	return text, nil
}

func (a *Adapter) config(systemInstruction string, temperature *float32, maxOutputTokens int32) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{MaxOutputTokens: maxOutputTokens}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	switch {
	case temperature != nil:
		config.Temperature = genai.Ptr(*temperature)
	case a.options.Temperature > 0:
		config.Temperature = genai.Ptr(a.options.Temperature)
	}
	if a.options.TopP > 0 {
		config.TopP = genai.Ptr(a.options.TopP)
	}
	if a.options.TopK > 0 {
		config.TopK = genai.Ptr(a.options.TopK)
	}
	return config
}

// ListModels returns the models that support content generation.
func (a *Adapter) ListModels(ctx context.Context, credential domain.Credential) ([]ports.ModelInfo, error) {
	client, err := a.client(ctx, credential)
	if err != nil {
		return nil, err
	}

	page, err := client.List(ctx, &genai.ListModelsConfig{})
	if err != nil {
		return nil, classify(err)
	}

	models := make([]ports.ModelInfo, 0, len(page.Items))
	for _, model := range page.Items {
		if model == nil || !supportsGeneration(model) {
			continue
		}
		models = append(models, ports.ModelInfo{
			Name:        model.Name,
			DisplayName: model.DisplayName,
			Description: model.Description,
		})
	}
	return models, nil
}

func supportsGeneration(model *genai.Model) bool {
	if len(model.SupportedActions) == 0 {
		return true
	}
	for _, action := range model.SupportedActions {
		if action == "generateContent" {
			return true
		}
	}
	return false
}

func (a *Adapter) StartConversation(_ context.Context, systemInstruction string, history []domain.Turn) (ports.Conversation, error) {
	return &conversation{
		adapter:           a,
		systemInstruction: systemInstruction,
		history:           append([]domain.Turn(nil), history...),
	}, nil
}

func toContents(turns []domain.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, turn := range turns {
		var role genai.Role = genai.RoleUser
		if turn.Role == domain.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	return contents
}

func userContent(message string, attachment *domain.Attachment) *genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(message)}
	if attachment != nil && len(attachment.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(attachment.Data, attachment.MIMEType))
	}
	return genai.NewContentFromParts(parts, genai.RoleUser)
}

// classify turns genai API errors into service errors carrying the retry
// taxonomy. Other errors pass through untouched.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewServiceError(kindFor(apiErr.Code, apiErr.Status), apiErr.Code, apiErr.Status, err)
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return domain.NewServiceError(kindFor(apiErrPtr.Code, apiErrPtr.Status), apiErrPtr.Code, apiErrPtr.Status, err)
	}

	return err
}

func kindFor(code int, status string) domain.ErrorKind {
	switch strings.ToUpper(status) {
	case "RESOURCE_EXHAUSTED":
		return domain.ErrorKindQuotaExceeded
	case "UNAVAILABLE", "DEADLINE_EXCEEDED", "INTERNAL":
		return domain.ErrorKindTransient
	}

	switch {
	case code == http.StatusTooManyRequests:
		return domain.ErrorKindQuotaExceeded
	case code == http.StatusRequestTimeout, code >= 500:
		return domain.ErrorKindTransient
	case code >= 400:
		return domain.ErrorKindFatal
	default:
		return domain.ErrorKindNone
	}
}
