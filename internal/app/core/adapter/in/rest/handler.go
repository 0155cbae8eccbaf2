package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/JoeShih716/go-ledger-service/internal/app/core/domain"
)

type transferRequest struct {
	RecipientUsername string `json:"recipientUsername"`
	// Amount 接受 JSON number 或字串，保留原文交給核心解析
	Amount json.RawMessage `json:"amount"`
}

type transferResponse struct {
	Message    string        `json:"message"`
	NewBalance domain.Amount `json:"newBalance"`
}

type profileResponse struct {
	Username string        `json:"username"`
	Balance  domain.Amount `json:"balance"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// handleTransfer POST /transfer
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rawAmount := strings.Trim(string(req.Amount), `"`)
	newBalance, err := s.core.Transfer(r.Context(), callerID(r), req.RecipientUsername, rawAmount)
	if err != nil {
		status, message := transferStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("transfer failed: %v", err)
		}
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{
		Message:    "transfer completed",
		NewBalance: newBalance,
	})
}

// handleMe GET /user/me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	account, err := s.core.GetAccount(r.Context(), callerID(r))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		log.Printf("profile lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Username: account.Username,
		Balance:  account.Balance,
	})
}

// transferStatus 業務規則錯誤一律 400，只有基礎設施故障回 5xx
func transferStatus(err error) (int, string) {
	for _, sentinel := range []error{
		domain.ErrInvalidAmount,
		domain.ErrSenderNotFound,
		domain.ErrRecipientNotFound,
		domain.ErrSelfTransfer,
		domain.ErrInsufficientFunds,
	} {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, sentinel.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
