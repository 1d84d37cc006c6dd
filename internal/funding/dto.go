package funding

// CardInRequest captures user-provided data to fund a wallet from a card.
type CardInRequest struct {
	CardNumber string `json:"card_number" validate:"required"`
	Expiry     string `json:"expiry" validate:"required,len=5"`
	CVV        string `json:"cvv" validate:"required,min=3,max=4,numeric"`
	Amount     string `json:"amount" validate:"required,money"`
	ClientTxID string `json:"client_tx_id" validate:"omitempty,max=64"`
}

// FundingResponse represents the API response for card funding actions.
type FundingResponse struct {
	TransactionID     string `json:"transaction_id"`
	Status            string `json:"status"`
	WalletBalance     string `json:"wallet_balance"`
	AcquirerReference string `json:"acquirer_reference,omitempty"`
}
