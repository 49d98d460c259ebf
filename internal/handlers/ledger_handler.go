package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bankledger/backend/internal/identity"
	"github.com/bankledger/backend/internal/logging"
	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger is the engine surface the HTTP layer depends on.
type Ledger interface {
	OpenAccount(ctx context.Context, profile models.Profile, initialBalance decimal.Decimal) (models.Account, error)
	Deposit(ctx context.Context, key string, amount decimal.Decimal) (models.TransactionRecord, error)
	Withdraw(ctx context.Context, key string, amount decimal.Decimal) (models.TransactionRecord, error)
	Transfer(ctx context.Context, senderKey, receiverKey string, amount decimal.Decimal) (services.TransferResult, error)
	History(ctx context.Context, key string, order models.Order) ([]models.TransactionRecord, error)
	GetAccount(ctx context.Context, key string) (models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	Reconcile(ctx context.Context, key string) (models.Account, error)
}

type OpenAccountRequest struct {
	FirstName      string          `json:"firstName" validate:"required,max=64"`
	LastName       string          `json:"lastName" validate:"required,max=64"`
	Mobile         int64           `json:"mobile" validate:"required,gt=0"`
	NationalID     int64           `json:"nationalId" validate:"required,gt=0"`
	InitialBalance decimal.Decimal `json:"initialBalance" swaggertype:"string" example:"1000.00"`
}

type TransferRequest struct {
	SenderFirstName   string          `json:"senderFirstName" validate:"required"`
	SenderMobile      int64           `json:"senderMobile" validate:"required,gt=0"`
	ReceiverFirstName string          `json:"receiverFirstName" validate:"required"`
	ReceiverMobile    int64           `json:"receiverMobile" validate:"required,gt=0"`
	Amount            decimal.Decimal `json:"amount" swaggertype:"string" example:"300.00"`
}

type ATMRequest struct {
	FirstName       string          `json:"firstName" validate:"required"`
	Mobile          int64           `json:"mobile" validate:"required,gt=0"`
	TransactionType string          `json:"transactionType" validate:"required,oneof=Deposit Withdraw"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string" example:"500.00"`
}

type HistoryRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	Mobile    int64  `json:"mobile" validate:"required,gt=0"`
	Order     string `json:"order"`
}

type HistoryResponse struct {
	Transactions []models.TransactionRecord `json:"transactions"`
}

type ReconcileResponse struct {
	Status  string         `json:"status"`
	Account models.Account `json:"account"`
}

type LedgerHandler struct {
	ledger    Ledger
	resolver  identity.Resolver
	validator *ValidationHelper
	logger    *zap.Logger
}

func NewLedgerHandler(ledger Ledger, resolver identity.Resolver, logger *zap.Logger) *LedgerHandler {
	logger = logging.OrNop(logger)
	return &LedgerHandler{
		ledger:    ledger,
		resolver:  resolver,
		validator: NewValidationHelper(),
		logger:    logger.Named("http"),
	}
}

// Routes mounts the ledger endpoints on r.
func (h *LedgerHandler) Routes(r chi.Router) {
	r.Get("/accounts", h.ListAccounts)
	r.Post("/accounts", h.OpenAccount)
	r.Get("/accounts/lookup", h.GetAccount)
	r.Post("/accounts/history", h.History)
	r.Get("/accounts/reconcile", h.Reconcile)
	r.Post("/transfers", h.Transfer)
	r.Post("/atm", h.ATM)
}

// ListAccounts returns every account
// @Summary List accounts
// @Tags Accounts
// @Produce json
// @Success 200 {array} models.Account
// @Failure 503 {object} handlers.ErrorResponse
// @Router /accounts [get]
func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.ListAccounts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// OpenAccount opens an account with an initial deposit
// @Summary Open account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body handlers.OpenAccountRequest true "Account details"
// @Success 201 {object} models.Account
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 409 {object} handlers.ErrorResponse
// @Router /accounts [post]
func (h *LedgerHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req OpenAccountRequest
	if !h.bind(w, r, &req) {
		return
	}

	account, err := h.ledger.OpenAccount(r.Context(), models.Profile{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Mobile:     req.Mobile,
		NationalID: req.NationalID,
	}, req.InitialBalance)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GetAccount looks an account up by first name and mobile
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Param firstName query string true "First name"
// @Param mobile query int true "Mobile number"
// @Success 200 {object} models.Account
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /accounts/lookup [get]
func (h *LedgerHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyFromQuery(w, r)
	if !ok {
		return
	}

	account, err := h.ledger.GetAccount(r.Context(), key)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Transfer moves funds between two accounts
// @Summary Transfer funds
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body handlers.TransferRequest true "Transfer request"
// @Success 200 {object} services.TransferResult
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 409 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse
// @Router /transfers [post]
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.bind(w, r, &req) {
		return
	}

	senderKey, err := h.resolver.Key(req.SenderFirstName, req.SenderMobile)
	if err != nil {
		h.fail(w, err)
		return
	}
	receiverKey, err := h.resolver.Key(req.ReceiverFirstName, req.ReceiverMobile)
	if err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.ledger.Transfer(r.Context(), senderKey, receiverKey, req.Amount)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ATM deposits to or withdraws from an account
// @Summary ATM deposit or withdrawal
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body handlers.ATMRequest true "ATM request"
// @Success 200 {object} models.TransactionRecord
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 422 {object} handlers.ErrorResponse
// @Router /atm [post]
func (h *LedgerHandler) ATM(w http.ResponseWriter, r *http.Request) {
	var req ATMRequest
	if !h.bind(w, r, &req) {
		return
	}

	key, err := h.resolver.Key(req.FirstName, req.Mobile)
	if err != nil {
		h.fail(w, err)
		return
	}

	var record models.TransactionRecord
	switch req.TransactionType {
	case "Deposit":
		record, err = h.ledger.Deposit(r.Context(), key, req.Amount)
	default:
		record, err = h.ledger.Withdraw(r.Context(), key, req.Amount)
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// History returns an account's transactions
// @Summary Transaction history
// @Tags Transactions
// @Accept json
// @Produce json
// @Param request body handlers.HistoryRequest true "History request"
// @Success 200 {object} handlers.HistoryResponse
// @Failure 400 {object} handlers.ErrorResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Router /accounts/history [post]
func (h *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	var req HistoryRequest
	if !h.bind(w, r, &req) {
		return
	}

	order, err := models.ParseOrder(req.Order)
	if err != nil {
		h.fail(w, err)
		return
	}
	key, err := h.resolver.Key(req.FirstName, req.Mobile)
	if err != nil {
		h.fail(w, err)
		return
	}

	records, err := h.ledger.History(r.Context(), key, order)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Transactions: records})
}

// Reconcile replays an account's history against its balance
// @Summary Reconcile account
// @Tags Accounts
// @Produce json
// @Param firstName query string true "First name"
// @Param mobile query int true "Mobile number"
// @Success 200 {object} handlers.ReconcileResponse
// @Failure 404 {object} handlers.ErrorResponse
// @Failure 500 {object} handlers.ErrorResponse
// @Router /accounts/reconcile [get]
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyFromQuery(w, r)
	if !ok {
		return
	}

	account, err := h.ledger.Reconcile(r.Context(), key)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{Status: "consistent", Account: account})
}

func (h *LedgerHandler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *LedgerHandler) keyFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	firstName := strings.TrimSpace(r.URL.Query().Get("firstName"))
	mobile, err := strconv.ParseInt(r.URL.Query().Get("mobile"), 10, 64)
	if firstName == "" || err != nil {
		SendErrorResponse(w, "firstName and numeric mobile query parameters are required", http.StatusBadRequest, nil)
		return "", false
	}

	key, err := h.resolver.Key(firstName, mobile)
	if err != nil {
		h.fail(w, err)
		return "", false
	}
	return key, true
}

// fail writes err as a JSON error. Server-side failures are logged in full
// and answered with a generic message so driver text never reaches clients.
// A ledger mismatch keeps its detail because it names only ledger data.
func (h *LedgerHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
		if !errors.Is(err, models.ErrLedgerMismatch) {
			message = genericMessage(status)
		}
	}
	SendErrorResponse(w, message, status, nil)
}

func genericMessage(status int) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "Service temporarily unavailable"
	case http.StatusGatewayTimeout:
		return "Request timed out"
	default:
		return "Internal server error"
	}
}
