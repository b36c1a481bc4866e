package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/freshfields/bulkorder/internal/domain/catalog"
)

type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

const productColumns = `id, name, description, category, unit, price, stock, retired, created_at, updated_at`

func (r *CatalogRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1;`, productColumns)

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Unit,
		&p.Price, &p.Stock, &p.Retired, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY id;`, productColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category, &p.Unit,
			&p.Price, &p.Stock, &p.Retired, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) Create(ctx context.Context, product *domain.Product) error {
	if product == nil {
		return fmt.Errorf("product is nil")
	}

	const query = `
		INSERT INTO products (id, name, description, category, unit, price, stock, retired, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.pool.Exec(ctx, query,
		product.ID, product.Name, product.Description, product.Category, product.Unit,
		product.Price, product.Stock, product.Retired, product.CreatedAt, product.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrConflict
	}
	return err
}

func (r *CatalogRepository) Update(ctx context.Context, id string, patch domain.Update) (*domain.Product, error) {
	// read-modify-write of display fields; stock is untouched here and only
	// ever moves through AdjustStock's guarded statement
	product, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := product.Apply(patch); err != nil {
		return nil, err
	}

	const query = `
		UPDATE products
		SET name = $2, description = $3, category = $4, unit = $5, price = $6, retired = $7, updated_at = $8
		WHERE id = $1;
	`
	_, err = r.pool.Exec(ctx, query,
		product.ID, product.Name, product.Description, product.Category, product.Unit,
		product.Price, product.Retired, product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *CatalogRepository) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	// single guarded statement: the row either moves atomically or not at all
	const query = `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock;
	`
	var stock int
	err := r.pool.QueryRow(ctx, query, id, delta).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		// distinguish a missing product from a refused decrement
		if _, getErr := r.Get(ctx, id); errors.Is(getErr, domain.ErrNotFound) {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrInsufficientStock
	}
	if err != nil {
		return 0, err
	}
	return stock, nil
}
