package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/lib/pq"
)

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
// 商品本体に加えて保存リストとカートも扱う。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

const productSelect = `
	SELECT pr.id, pr.user_id, pr.title, pr.content, COALESCE(pr.thumbnail, ''),
	       COALESCE(pr.detail_image, ''), pr.price, pr.discount, pr.view_count,
	       pr.created_at, pr.updated_at,
	       COALESCE(p.name, ''),
	       EXISTS (SELECT 1 FROM saved_products sp WHERE sp.product_id = pr.id AND sp.user_id::text = $1)
	FROM products pr
	LEFT JOIN profiles p ON p.user_id = pr.user_id`

func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	pr := &model.Product{}
	err := row.Scan(
		&pr.ID, &pr.UserID, &pr.Title, &pr.Content, &pr.Thumbnail,
		&pr.DetailImage, &pr.Price, &pr.Discount, &pr.ViewCount,
		&pr.CreatedAt, &pr.UpdatedAt,
		&pr.AuthorName, &pr.Saved,
	)
	if err != nil {
		return nil, err
	}
	return pr, nil
}

// FindByID は指定IDの商品を作成者名付きで取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id, viewerID string) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx, productSelect+` WHERE pr.id = $2`, viewerID, id)

	product, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List は商品一覧を新しい順で返す。keywordが空でない場合タイトルで部分一致検索する。
func (r *PostgresProductRepo) List(ctx context.Context, keyword string, offset, limit int, viewerID string) ([]*model.Product, int, error) {
	where := ""
	countArgs := []any{}
	if keyword != "" {
		where = ` WHERE pr.title ILIKE '%' || $1 || '%'`
		countArgs = append(countArgs, keyword)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM products pr`+where, countArgs...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := productSelect
	args := []any{viewerID}
	if keyword != "" {
		query += ` WHERE pr.title ILIKE '%' || $2 || '%' ORDER BY pr.created_at DESC OFFSET $3 LIMIT $4`
		args = append(args, keyword, offset, limit)
	} else {
		query += ` ORDER BY pr.created_at DESC OFFSET $2 LIMIT $3`
		args = append(args, offset, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, total, nil
}

// ListByAuthor は指定ユーザーが作成した商品一覧を新しい順で返す。
func (r *PostgresProductRepo) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Product, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM products WHERE user_id = $1`, authorID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products by author: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		productSelect+` WHERE pr.user_id::text = $1 ORDER BY pr.created_at DESC OFFSET $2 LIMIT $3`,
		authorID, offset, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products by author: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, total, nil
}

// Create は商品を作成する。
func (r *PostgresProductRepo) Create(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, user_id, title, content, thumbnail, detail_image, price, discount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		product.ID, product.UserID, product.Title, product.Content,
		product.Thumbnail, product.DetailImage, product.Price, product.Discount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// Update は商品情報を更新する。
func (r *PostgresProductRepo) Update(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET title = $1, content = $2, thumbnail = $3, detail_image = $4,
		     price = $5, discount = $6, updated_at = now()
		 WHERE id = $7`,
		product.Title, product.Content, product.Thumbnail, product.DetailImage,
		product.Price, product.Discount, product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// Delete は指定IDの商品を削除する。
func (r *PostgresProductRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// IncrementViewCount は閲覧数を1増やす。
func (r *PostgresProductRepo) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products SET view_count = view_count + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	return nil
}

// Save は商品をユーザーの保存リストに追加する。
func (r *PostgresProductRepo) Save(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO saved_products (id, user_id, product_id) VALUES ($1, $2, $3)`,
		uuid.New().String(), userID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// Unsave は商品をユーザーの保存リストから削除する。
func (r *PostgresProductRepo) Unsave(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_products WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to unsave product: %w", err)
	}
	return nil
}

// ListSavedByUser はユーザーが保存した商品一覧を保存の新しい順で返す。
func (r *PostgresProductRepo) ListSavedByUser(ctx context.Context, userID string, offset, limit int) ([]*model.Product, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM saved_products WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count saved products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		productSelect+`
		 JOIN saved_products sp2 ON sp2.product_id = pr.id AND sp2.user_id::text = $1
		 ORDER BY sp2.created_at DESC OFFSET $2 LIMIT $3`,
		userID, offset, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list saved products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan saved product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate saved products: %w", err)
	}

	return products, total, nil
}

// AddToCart は商品をカートに追加する。
func (r *PostgresProductRepo) AddToCart(ctx context.Context, item *model.CartItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carts (id, user_id, product_id, is_bought, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		item.ID, item.UserID, item.ProductID, item.IsBought, item.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}
	return nil
}

// RemoveFromCart はカートから商品を削除する。
func (r *PostgresProductRepo) RemoveFromCart(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM carts WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

// ListCart はユーザーのカート内容を商品情報付きで返す。
func (r *PostgresProductRepo) ListCart(ctx context.Context, userID string) ([]*model.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.product_id, c.is_bought, c.expires_at, c.created_at, c.updated_at,
		        pr.id, pr.user_id, pr.title, pr.content, COALESCE(pr.thumbnail, ''),
		        COALESCE(pr.detail_image, ''), pr.price, pr.discount, pr.view_count,
		        pr.created_at, pr.updated_at
		 FROM carts c
		 JOIN products pr ON pr.id = c.product_id
		 WHERE c.user_id = $1
		 ORDER BY c.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	var items []*model.CartItem
	for rows.Next() {
		item := &model.CartItem{Product: &model.Product{}}
		pr := item.Product
		err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.IsBought, &item.ExpiresAt, &item.CreatedAt, &item.UpdatedAt,
			&pr.ID, &pr.UserID, &pr.Title, &pr.Content, &pr.Thumbnail,
			&pr.DetailImage, &pr.Price, &pr.Discount, &pr.ViewCount,
			&pr.CreatedAt, &pr.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// MarkBought は決済完了した商品のカート行を購入済みにする。
func (r *PostgresProductRepo) MarkBought(ctx context.Context, userID string, productIDs []string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE carts SET is_bought = true, updated_at = now()
		 WHERE user_id = $1 AND product_id = ANY($2)`,
		userID, pq.Array(productIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to mark cart items bought: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
