package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, product_code, product_name, level_1_category, level_2_category, level_3_category,
	status, material, color, size, style, selling_points, tax_rate, created_at, updated_at`

type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.ProductCode, &p.ProductName, &p.Level1Category, &p.Level2Category, &p.Level3Category,
		&p.Status, &p.Material, &p.Color, &p.Size, &p.Style, &p.SellingPoints, &p.TaxRate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get product", err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

// GetForUpdate locks the row until the surrounding transaction ends. Outside a
// transaction it behaves like GetByID.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate("lock product", err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

// Create inserts a product from an already-normalized field map.
func (r *ProductRepo) Create(ctx context.Context, values map[string]any) (*models.Product, error) {
	cols := models.SortedFieldNames(values)
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[c]
	}

	query := fmt.Sprintf(`INSERT INTO products (%s) VALUES (%s) RETURNING %s`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), productColumns)

	p, err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, translate("insert product", err, "product")
	}
	return p, nil
}

// Update applies values to one product in a single statement.
func (r *ProductRepo) Update(ctx context.Context, id int64, values map[string]any) (*models.Product, error) {
	set, args := setClause(values, 2)
	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $1 RETURNING %s`, set, productColumns)

	p, err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx, query, append([]any{id}, args...)...))
	if err != nil {
		return nil, translate("update product", err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(db.Conn(ctx, r.pool).QueryRow(ctx,
		`DELETE FROM products WHERE id = $1 RETURNING `+productColumns, id))
	if err != nil {
		return nil, translate("delete product", err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

// UpdateMany applies the same values to every listed product and returns the
// ids that actually existed.
func (r *ProductRepo) UpdateMany(ctx context.Context, ids []int64, values map[string]any) ([]int64, error) {
	set, args := setClause(values, 2)
	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = ANY($1) RETURNING id`, set)
	return r.collectIDs(ctx, "bulk update products", query, append([]any{ids}, args...)...)
}

// DeleteMany removes every listed product and returns the ids that existed.
func (r *ProductRepo) DeleteMany(ctx context.Context, ids []int64) ([]int64, error) {
	return r.collectIDs(ctx, "bulk delete products", `DELETE FROM products WHERE id = ANY($1) RETURNING id`, ids)
}

// InsertMany inserts all rows or none and returns the new ids in input order.
func (r *ProductRepo) InsertMany(ctx context.Context, rows []map[string]any) ([]int64, error) {
	batch := &pgx.Batch{}
	for _, values := range rows {
		cols := models.SortedFieldNames(values)
		placeholders := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, c := range cols {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = values[c]
		}
		batch.Queue(fmt.Sprintf(`INSERT INTO products (%s) VALUES (%s) RETURNING id`,
			strings.Join(cols, ", "), strings.Join(placeholders, ", ")), args...)
	}

	results := db.Conn(ctx, r.pool).SendBatch(ctx, batch)
	defer results.Close()

	ids := make([]int64, 0, len(rows))
	for range rows {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			return nil, translate("import products", err, "product")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *ProductRepo) collectIDs(ctx context.Context, op, query string, args ...any) ([]int64, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(op, err, "products")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, translate(op, err, "products")
	}
	return ids, nil
}

// setClause renders "col = $n" pairs for values, numbering from start, and
// always bumps updated_at.
func setClause(values map[string]any, start int) (string, []any) {
	cols := models.SortedFieldNames(values)
	parts := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols))
	for i, c := range cols {
		parts = append(parts, fmt.Sprintf("%s = $%d", c, start+i))
		args = append(args, values[c])
	}
	parts = append(parts, "updated_at = now()")
	return strings.Join(parts, ", "), args
}
