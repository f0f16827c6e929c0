package handler

import (
	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
)

// containerResponse is the wire shape of a container record.
type containerResponse struct {
	ID            uint64          `json:"id"`
	Originator    id.AccountID    `json:"originator"`
	Destination   id.AccountID    `json:"destination"`
	Asset         id.AssetID      `json:"asset"`
	Quantity      int64           `json:"quantity"`
	Status        string          `json:"status"`
	Inception     uint64          `json:"inception"`
	Termination   uint64          `json:"termination"`
	RecoveryAgent id.AccountID    `json:"recovery_agent,omitempty"`
	Multisig      *multisigPolicy `json:"multisig_policy,omitempty"`

	// ReviewBy is only set on lockdown responses: the advisory tick by which
	// the freeze should be reviewed.
	ReviewBy uint64 `json:"review_by,omitempty"`
}

type multisigPolicy struct {
	Signers   []id.AccountID `json:"signers"`
	Threshold int            `json:"threshold"`
}

func newContainerResponse(c *models.Container) containerResponse {
	resp := containerResponse{
		ID:            uint64(c.ID),
		Originator:    c.Originator,
		Destination:   c.Destination,
		Asset:         c.Asset,
		Quantity:      c.Quantity,
		Status:        string(c.Status),
		Inception:     uint64(c.Inception),
		Termination:   uint64(c.Termination),
		RecoveryAgent: c.RecoveryAgent,
	}
	if c.Multisig != nil {
		resp.Multisig = &multisigPolicy{
			Signers:   c.Multisig.Signers,
			Threshold: c.Multisig.Threshold,
		}
	}
	return resp
}

type verifyProofResponse struct {
	Signer id.AccountID `json:"signer"`
}

type verifyMultisigResponse struct {
	Signers []id.AccountID `json:"signers"`
}
