package controllers

type addItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	// Quantity defaults to 1 when omitted or zero.
	Quantity int `json:"quantity" validate:"gte=0,lte=999"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=999"`
}

type checkoutRequest struct {
	SuccessURL string `json:"successUrl" validate:"required,url"`
	CancelURL  string `json:"cancelUrl" validate:"required,url"`
}
