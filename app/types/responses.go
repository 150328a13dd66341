package types

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DistributionView struct {
	TotalCents      int64   `json:"totalCents"`
	Currency        string  `json:"currency"`
	TithingCents    int64   `json:"tithingCents"`
	SowerCents      int64   `json:"sowerCents"`
	GrowerCents     int64   `json:"growerCents"`
	Mode            string  `json:"mode"`
	HoldReason      *string `json:"holdReason,omitempty"`
	CourierRequired bool    `json:"courierRequired"`
}

type CreateBestowalResponse struct {
	Success         bool              `json:"success"`
	BestowalID      string            `json:"bestowalId"`
	ProviderOrderID string            `json:"providerOrderId"`
	PaymentURL      string            `json:"paymentUrl"`
	Distribution    *DistributionView `json:"distribution"`
}

type BestowalView struct {
	BestowalID      string            `json:"bestowalId"`
	OrchardID       string            `json:"orchardId"`
	AmountCents     int64             `json:"amountCents"`
	Currency        string            `json:"currency"`
	PocketCount     int32             `json:"pocketCount"`
	Status          string            `json:"status"`
	ReleaseStatus   string            `json:"releaseStatus"`
	ProviderOrderID string            `json:"providerOrderId"`
	PaymentURL      string            `json:"paymentUrl"`
	Distribution    *DistributionView `json:"distribution"`
	CreatedAt       string            `json:"createdAt"`
}

type BestowalEnvelopeResponse struct {
	Bestowal *BestowalView `json:"bestowal"`
}

type EscrowReleaseResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// Provider webhook acknowledgment envelopes. Providers retry until they see
// their own success shape, so these are fixed.
type BinanceWebhookAck struct {
	ReturnCode    string `json:"returnCode"`
	ReturnMessage string `json:"returnMessage,omitempty"`
}

type CryptomusWebhookAck struct {
	State int32 `json:"state"`
}
