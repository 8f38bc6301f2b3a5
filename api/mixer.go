package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/slushie/slushie-node/crypto/hash/mixhash"
	"github.com/slushie/slushie-node/ledger"
	"github.com/slushie/slushie-node/log"
)

// depositHandler submits the commitment with the declared amount. The
// ledger attaches, validates and settles or reverts the value itself, so
// the handler stays a thin parse-and-map wrapper.
func (a *API) depositHandler(w http.ResponseWriter, r *http.Request) {
	req := &DepositRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if len(req.Commitment) == 0 {
		ErrMalformedCommitment.Write(w)
		return
	}
	commitment, err := mixhash.FromBytes(req.Commitment)
	if err != nil {
		ErrMalformedCommitment.WithErr(err).Write(w)
		return
	}

	root, index, err := a.ledger.Deposit(commitment, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidTransferredAmount):
			ErrInvalidDepositAmount.WithErr(err).Write(w)
		case errors.Is(err, ledger.ErrTreeFull):
			ErrTreeFull.Write(w)
		default:
			log.Warnw("deposit failed", "error", err)
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}

	httpWriteJSON(w, &DepositResponse{Root: root.Bytes(), Index: index})
}

// withdrawHandler spends a nullifier against a recent root and pays out to
// the recipient.
func (a *API) withdrawHandler(w http.ResponseWriter, r *http.Request) {
	req := &WithdrawRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if len(req.Nullifier) == 0 {
		ErrMalformedNullifier.Write(w)
		return
	}
	nullifier, err := mixhash.FromBytes(req.Nullifier)
	if err != nil {
		ErrMalformedNullifier.WithErr(err).Write(w)
		return
	}
	if len(req.Root) == 0 {
		ErrMalformedRoot.Write(w)
		return
	}
	root, err := mixhash.FromBytes(req.Root)
	if err != nil {
		ErrMalformedRoot.WithErr(err).Write(w)
		return
	}
	if !common.IsHexAddress(req.Recipient) {
		ErrMalformedRecipient.Write(w)
		return
	}
	recipient := common.HexToAddress(req.Recipient)

	if err := a.ledger.Withdraw(nullifier, root, recipient); err != nil {
		switch {
		case errors.Is(err, ledger.ErrUnknownRoot):
			ErrUnknownRoot.Write(w)
		case errors.Is(err, ledger.ErrNullifierUsed):
			ErrNullifierAlreadyUsed.Write(w)
		case errors.Is(err, ledger.ErrInsufficientFunds):
			ErrInsufficientFunds.Write(w)
		default:
			log.Warnw("withdrawal failed", "error", err)
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}
	httpWriteOK(w)
}
