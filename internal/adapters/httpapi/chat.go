package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bnema/smartani/internal/application"
	"github.com/bnema/smartani/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Response       string             `json:"response"`
	Tier           domain.OutcomeKind `json:"tier"`
	References     []domain.Reference `json:"references"`
	SessionID      string             `json:"session_id"`
	ProcessingTime float64            `json:"processing_time"`
	FileURL        string             `json:"file_url,omitempty"`
	ZipContents    []string           `json:"zip_contents,omitempty"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
}

// HandleChat handles POST /api/chat.
func (h *Handlers) HandleChat(c *gin.Context) {
	start := h.now()

	var (
		request chatRequest
		upload  *savedUpload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var status int
		var err error
		request, upload, status, err = h.readMultipart(c)
		if err != nil {
			c.JSON(status, errorResponse{Error: err.Error()})
			return
		}
	} else {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "request body must be JSON with a message"})
			return
		}
	}

	message := strings.TrimSpace(request.Message)
	query := application.Query{SessionKey: domain.NormalizeSessionKey(strings.TrimSpace(request.SessionID))}
	if upload != nil {
		message = strings.TrimSpace(uploadMarker(upload.URL) + " " + message)
		query.Attachment = upload.Attachment
	}
	if message == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: domain.ErrEmptyMessage.Error()})
		return
	}
	query.Message = message

	outcome := h.resolver.Resolve(c.Request.Context(), query)
	if outcome.Failed() {
		h.logger.Warn("chat failed",
			zap.String("session", query.SessionKey),
			zap.String("kind", string(outcome.ErrorKind)),
		)
		c.JSON(failureStatus(outcome.ErrorKind), errorResponse{Error: outcome.Text(), Kind: outcome.ErrorKind})
		return
	}

	references := outcome.References
	if references == nil {
		references = []domain.Reference{}
	}
	response := chatResponse{
		Response:       outcome.Text(),
		Tier:           outcome.Kind,
		References:     references,
		SessionID:      query.SessionKey,
		ProcessingTime: h.now().Sub(start).Seconds(),
	}
	if upload != nil {
		response.FileURL = upload.URL
		response.ZipContents = upload.ZipContents
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handlers) readMultipart(c *gin.Context) (chatRequest, *savedUpload, int, error) {
	if c.Request.ContentLength > h.config.MaxUploadBytes {
		return chatRequest{}, nil, http.StatusRequestEntityTooLarge, errUploadTooLarge
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return chatRequest{}, nil, http.StatusRequestEntityTooLarge, errUploadTooLarge
		}
		return chatRequest{}, nil, http.StatusBadRequest, errors.New("malformed multipart form")
	}

	request := chatRequest{
		SessionID: c.Request.FormValue("session_id"),
		Message:   c.Request.FormValue("message"),
	}

	file, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return request, nil, http.StatusOK, nil
	}
	if err != nil {
		return chatRequest{}, nil, http.StatusBadRequest, errors.New("read uploaded file")
	}

	upload, err := h.saveUpload(c, file)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errFileTypeNotAllowed) {
			status = http.StatusBadRequest
		}
		if status == http.StatusInternalServerError {
			h.logger.Error("save upload", zap.String("file", file.Filename), zap.Error(err))
		}
		return chatRequest{}, nil, status, err
	}
	return request, upload, http.StatusOK, nil
}

func failureStatus(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindRetryBudgetExceeded, domain.ErrorKindPoolExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
