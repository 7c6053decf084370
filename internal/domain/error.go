package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code     int    `json:"code" example:"400"`
	Category string `json:"category" example:"VALIDATION_ERROR"`
	Message  string `json:"message" example:"O nome do produto não pode ser vazio."`
}

// ActionResult é o envelope uniforme das ações de formulário do PDV:
// {success:true, ...} ou {success:false, error:"..."}.
type ActionResult struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Product *Product      `json:"product,omitempty"`
	Sale    *Sale         `json:"sale,omitempty"`
	Cart    *CartSnapshot `json:"cart,omitempty"`
}
