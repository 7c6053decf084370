package domain

// CartItem associa um snapshot de Produto a uma quantidade positiva.
// O snapshot é deliberado: alterações posteriores de preço no catálogo não
// afetam itens já adicionados ao carrinho.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// CartSnapshot é a visão imutável do carrinho entregue aos assinantes
// e aos handlers, com os agregados derivados já calculados.
type CartSnapshot struct {
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"item_count"`
}
