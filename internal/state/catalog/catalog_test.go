package catalog_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lpbborges/auto-pos/internal/domain"
	"github.com/lpbborges/auto-pos/internal/state/catalog"
)

func newProduct(name string, price float64, stock int) domain.Product {
	now := time.Now().UTC()
	return domain.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     price,
		Stock:     stock,
		StoreID:   "store-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestAdd_MaterializesDraft verifica que Add atribui ID novo e timestamps
// iguais na criação.
func TestAdd_MaterializesDraft(t *testing.T) {
	store := catalog.NewStore(nil)

	created := store.Add(domain.ProductDraft{Name: "Coffee", Price: 4.5, Stock: 50, StoreID: "store-1"})

	assert.NotEmpty(t, created.ID)
	_, err := uuid.Parse(created.ID)
	assert.NoError(t, err)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Equal(t, 50, created.Stock)
	assert.Equal(t, 4.5, created.Price)
	assert.Nil(t, created.DeletedAt)
}

// TestAdd_PrependsNewest verifica que o produto mais novo aparece primeiro.
func TestAdd_PrependsNewest(t *testing.T) {
	store := catalog.NewStore(nil)

	store.Add(domain.ProductDraft{Name: "Primeiro", Price: 1, Stock: 1, StoreID: "store-1"})
	store.Add(domain.ProductDraft{Name: "Segundo", Price: 2, Stock: 1, StoreID: "store-1"})

	list := store.List()
	assert.Len(t, list, 2)
	assert.Equal(t, "Segundo", list[0].Name)
	assert.Equal(t, "Primeiro", list[1].Name)
}

// TestSoftDelete_ExcluiDeTodasAsListagens verifica que um produto tombstoned
// some de List e Available qualquer que seja a busca, mas permanece na arena.
func TestSoftDelete_ExcluiDeTodasAsListagens(t *testing.T) {
	p := newProduct("Café Expresso", 4.5, 10)
	store := catalog.NewStore([]domain.Product{p})

	store.SoftDelete(p.ID)

	assert.Empty(t, store.List())
	assert.Empty(t, store.Available())
	assert.Empty(t, store.ListMatching("café"))
	assert.Empty(t, store.ListMatching(""))

	// O registro nunca é removido fisicamente.
	kept, ok := store.Get(p.ID)
	assert.True(t, ok)
	assert.NotNil(t, kept.DeletedAt)
}

// TestSoftDelete_Idempotente verifica que deletar duas vezes é um no-op
// além da atualização do timestamp.
func TestSoftDelete_Idempotente(t *testing.T) {
	p := newProduct("Café", 4.5, 10)
	store := catalog.NewStore([]domain.Product{p})

	store.SoftDelete(p.ID)
	first, _ := store.Get(p.ID)

	store.SoftDelete(p.ID)
	second, ok := store.Get(p.ID)

	assert.True(t, ok)
	assert.NotNil(t, second.DeletedAt)
	assert.False(t, second.DeletedAt.Before(*first.DeletedAt))
}

// TestList_BuscaCaseInsensitive verifica o filtro por substring do nome.
func TestList_BuscaCaseInsensitive(t *testing.T) {
	store := catalog.NewStore([]domain.Product{
		newProduct("Café Expresso", 4.5, 10),
		newProduct("Suco de Laranja", 7, 5),
	})

	assert.Len(t, store.ListMatching("CAFÉ"), 1)
	assert.Len(t, store.ListMatching("laranja"), 1)
	assert.Len(t, store.ListMatching(""), 2)
	assert.Empty(t, store.ListMatching("pizza"))
}

// TestAvailable_FiltraEstoqueZerado verifica que Available exige estoque positivo.
func TestAvailable_FiltraEstoqueZerado(t *testing.T) {
	inStock := newProduct("Com Estoque", 10, 3)
	outOfStock := newProduct("Sem Estoque", 10, 0)
	store := catalog.NewStore([]domain.Product{inStock, outOfStock})

	available := store.Available()
	assert.Len(t, available, 1)
	assert.Equal(t, inStock.ID, available[0].ID)

	// List continua mostrando ambos.
	assert.Len(t, store.List(), 2)
}

// TestDecrementStock_SaturaEmZero verifica que nenhuma magnitude de baixa
// produz estoque negativo.
func TestDecrementStock_SaturaEmZero(t *testing.T) {
	p := newProduct("Café", 4.5, 10)
	store := catalog.NewStore([]domain.Product{p})

	store.DecrementStock(p.ID, p.Stock+1000)

	updated, ok := store.Get(p.ID)
	assert.True(t, ok)
	assert.Equal(t, 0, updated.Stock)
}

// TestDecrementStock_BaixaParcial verifica a baixa normal.
func TestDecrementStock_BaixaParcial(t *testing.T) {
	p := newProduct("Café", 4.5, 10)
	store := catalog.NewStore([]domain.Product{p})

	store.DecrementStock(p.ID, 2)

	updated, _ := store.Get(p.ID)
	assert.Equal(t, 8, updated.Stock)
}

// TestUpdate_NoOpSilenciosoParaIDInexistente verifica a escolha de projeto
// documentada: atualizar um ID ausente não falha, apenas não faz nada.
func TestUpdate_NoOpSilenciosoParaIDInexistente(t *testing.T) {
	store := catalog.NewStore([]domain.Product{newProduct("Café", 4.5, 10)})

	name := "Novo Nome"
	_, found := store.Update("id-que-nao-existe", domain.ProductPatch{Name: &name})

	assert.False(t, found)
	assert.Len(t, store.List(), 1)
	assert.Equal(t, "Café", store.List()[0].Name)
}

// TestUpdate_MesclaCamposERefrescaUpdatedAt verifica o merge parcial.
func TestUpdate_MesclaCamposERefrescaUpdatedAt(t *testing.T) {
	p := newProduct("Café", 4.5, 10)
	store := catalog.NewStore([]domain.Product{p})

	price := 5.0
	updated, found := store.Update(p.ID, domain.ProductPatch{Price: &price})

	assert.True(t, found)
	assert.Equal(t, 5.0, updated.Price)
	assert.Equal(t, "Café", updated.Name) // campo não presente no patch é preservado
	assert.Equal(t, 10, updated.Stock)
	assert.False(t, updated.UpdatedAt.Before(p.UpdatedAt))
}

// TestSnapshotRestore_RoundTrip verifica que serializar e desserializar o
// catálogo produz a mesma lista ordenada de produtos.
func TestSnapshotRestore_RoundTrip(t *testing.T) {
	a := newProduct("A", 1, 1)
	b := newProduct("B", 2, 2)
	deleted := newProduct("C", 3, 3)
	store := catalog.NewStore([]domain.Product{a, b, deleted})
	store.SoftDelete(deleted.ID)

	blob, err := store.Snapshot()
	assert.NoError(t, err)

	restored := catalog.NewStore(nil)
	restored.Restore(blob)

	original := store.List()
	got := restored.List()
	assert.Len(t, got, len(original))
	for i := range original {
		assert.Equal(t, original[i].ID, got[i].ID)
		assert.Equal(t, original[i].Name, got[i].Name)
		assert.Equal(t, original[i].Price, got[i].Price)
		assert.Equal(t, original[i].Stock, got[i].Stock)
		assert.True(t, original[i].CreatedAt.Equal(got[i].CreatedAt))
	}

	// O tombstone sobrevive ao round-trip.
	keptDeleted, ok := restored.Get(deleted.ID)
	assert.True(t, ok)
	assert.NotNil(t, keptDeleted.DeletedAt)
}

// TestRestore_BlobCorrompidoViraVazio verifica o fallback: falha de parse é
// tratada como catálogo vazio, sem erro.
func TestRestore_BlobCorrompidoViraVazio(t *testing.T) {
	store := catalog.NewStore([]domain.Product{newProduct("Café", 4.5, 10)})

	store.Restore([]byte("{nao-e-json"))

	assert.Empty(t, store.List())
}

// TestSubscribe_PublicaSnapshotAposMutacao verifica o mecanismo reativo.
func TestSubscribe_PublicaSnapshotAposMutacao(t *testing.T) {
	store := catalog.NewStore(nil)

	var published [][]domain.Product
	unsubscribe := store.Subscribe(func(products []domain.Product) {
		published = append(published, products)
	})

	store.Add(domain.ProductDraft{Name: "Café", Price: 4.5, Stock: 10, StoreID: "store-1"})
	assert.Len(t, published, 1)
	assert.Len(t, published[0], 1)

	unsubscribe()
	store.Add(domain.ProductDraft{Name: "Suco", Price: 7, Stock: 5, StoreID: "store-1"})
	assert.Len(t, published, 1) // nada publicado após o cancelamento
}
