package server

import (
	"net/http"
	"strconv"

	"task-ledger/internal/domain"
	"task-ledger/internal/errors"
	"task-ledger/internal/validation"

	"github.com/gin-gonic/gin"
)

// TransactionRequest is the body of POST /v1/transactions
type TransactionRequest struct {
	Method  string `json:"method" binding:"required"`
	TaskID  int64  `json:"task_id"`
	Text    string `json:"text"`
	Deleted bool   `json:"deleted"`
}

// ChainResponse describes the network the node runs
type ChainResponse struct {
	ChainID     uint64 `json:"chain_id"`
	ChainIDHex  string `json:"chain_id_hex"`
	BlockNumber int64  `json:"block_number"`
}

// ErrorResponse is written for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Type  string `json:"type"`
}

func (s *Server) getChain(c *gin.Context) {
	ctx := c.Request.Context()
	chainID, err := s.node.ChainID(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	block, err := s.node.BlockNumber(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ChainResponse{
		ChainID:     chainID,
		ChainIDHex:  domain.FormatChainID(chainID),
		BlockNumber: block,
	})
}

func (s *Server) submitTransaction(c *gin.Context) {
	from, err := accountFrom(c)
	if err != nil {
		s.writeError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.NewValidationError("invalid transaction body", err))
		return
	}
	method, err := domain.ParseMethod(req.Method)
	if err != nil {
		s.writeError(c, err)
		return
	}

	call := domain.Call{Method: method, TaskID: req.TaskID, Text: req.Text, Deleted: req.Deleted}
	if err := s.validator.ValidateCall(call); err != nil {
		s.writeError(c, validationFailure(err))
		return
	}

	txID, err := s.node.Submit(c.Request.Context(), from, call)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"tx_id": txID})
}

func (s *Server) getReceipt(c *gin.Context) {
	receipt, err := s.node.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) listTasks(c *gin.Context) {
	account, err := accountFrom(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	tasks, err := s.node.GetMyTasks(c.Request.Context(), account)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (s *Server) getTask(c *gin.Context) {
	account, err := accountFrom(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.writeError(c, errors.NewInvalidInputError("task_id", c.Param("id"), "must be an integer"))
		return
	}
	if err := s.validator.ValidateTaskID(id); err != nil {
		s.writeError(c, validationFailure(err))
		return
	}
	task, err := s.node.GetTask(c.Request.Context(), account, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) listEvents(c *gin.Context) {
	var owner domain.Address
	if raw := c.Query("owner"); raw != "" {
		parsed, err := domain.ParseAddress(raw)
		if err != nil {
			s.writeError(c, err)
			return
		}
		owner = parsed
	}
	events, err := s.node.Events(c.Request.Context(), owner)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func accountFrom(c *gin.Context) (domain.Address, error) {
	raw := c.GetHeader(AccountHeader)
	if raw == "" {
		return "", errors.NewInvalidInputError("account", raw, AccountHeader+" header is required")
	}
	return domain.ParseAddress(raw)
}

func validationFailure(err error) error {
	if ve, ok := err.(*validation.ValidationError); ok {
		return ve.ToAppError()
	}
	return err
}

func (s *Server) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	resp := ErrorResponse{
		Error: errors.GetUserMessage(err),
		Code:  errors.GetErrorCode(err),
		Type:  "unknown",
	}
	if appErr, ok := errors.AsAppError(err); ok {
		resp.Type = appErr.Type.String()
	}
	c.AbortWithStatusJSON(StatusFor(err), resp)
}

// StatusFor maps an error to the HTTP status it is served with
func StatusFor(err error) int {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation, errors.ErrorTypeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypePermission:
		return http.StatusForbidden
	case errors.ErrorTypeBusy:
		return http.StatusConflict
	case errors.ErrorTypeNetwork:
		return http.StatusMisdirectedRequest
	case errors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrorTypeReverted:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
