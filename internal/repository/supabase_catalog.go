package repository

import (
	"context"
	"fmt"

	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/supabase"
)

// SupabaseCategoryRepository implements CategoryRepository.
type SupabaseCategoryRepository struct {
	db *supabase.Client
}

// NewSupabaseCategoryRepository creates a new category repository.
func NewSupabaseCategoryRepository(db *supabase.Client) *SupabaseCategoryRepository {
	return &SupabaseCategoryRepository{db: db}
}

// ListCategories returns all categories in display order.
func (r *SupabaseCategoryRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	resp, err := r.db.From("categories").
		Select("*").
		Order("sort_order", true).
		Order("name", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := []model.Category{}
	if err := resp.Decode(&categories); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ListSubcategories returns the subcategories of one category.
func (r *SupabaseCategoryRepository) ListSubcategories(ctx context.Context, categoryID int64) ([]model.Subcategory, error) {
	resp, err := r.db.From("subcategories").
		Select("*").
		Eq("category_id", categoryID).
		Order("name", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}

	subcategories := []model.Subcategory{}
	if err := resp.Decode(&subcategories); err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	return subcategories, nil
}

// SupabasePlanRepository implements PlanRepository.
type SupabasePlanRepository struct {
	db *supabase.Client
}

// NewSupabasePlanRepository creates a new plan repository.
func NewSupabasePlanRepository(db *supabase.Client) *SupabasePlanRepository {
	return &SupabasePlanRepository{db: db}
}

// ListActive returns purchasable plans, cheapest first.
func (r *SupabasePlanRepository) ListActive(ctx context.Context) ([]model.Plan, error) {
	resp, err := r.db.From("subscription_plans").
		Select("*").
		Eq("is_active", true).
		Order("price", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	plans := []model.Plan{}
	if err := resp.Decode(&plans); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// CurrentSubscription returns the newest active or trialing subscription.
func (r *SupabasePlanRepository) CurrentSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	resp, err := r.db.From("subscriptions").
		Select("*,plan:subscription_plans(*)").
		Eq("user_id", userID).
		In("status", []string{"active", "trialing"}).
		Order("created_at", false).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	var subs []model.Subscription
	if err := resp.Decode(&subs); err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return &subs[0], nil
}

// SupabaseTransactionRepository implements TransactionRepository.
type SupabaseTransactionRepository struct {
	db *supabase.Client
}

// NewSupabaseTransactionRepository creates a new transaction repository.
func NewSupabaseTransactionRepository(db *supabase.Client) *SupabaseTransactionRepository {
	return &SupabaseTransactionRepository{db: db}
}

// GetByID retrieves a transaction.
func (r *SupabaseTransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	resp, err := r.db.From("transactions").Select("*").Eq("id", id).Single().Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	var tx model.Transaction
	if err := resp.Decode(&tx); err != nil {
		return nil, wrapNotFound(err, "failed to get transaction")
	}
	return &tx, nil
}

// SupabaseReviewRepository implements ReviewRepository.
type SupabaseReviewRepository struct {
	db *supabase.Client
}

// NewSupabaseReviewRepository creates a new review repository.
func NewSupabaseReviewRepository(db *supabase.Client) *SupabaseReviewRepository {
	return &SupabaseReviewRepository{db: db}
}

// CountForUser counts reviews received by userID.
func (r *SupabaseReviewRepository) CountForUser(ctx context.Context, userID string) (int64, error) {
	resp, err := r.db.From("reviews").
		Select("id").
		Eq("reviewee_id", userID).
		Count("exact").
		Limit(1).
		Execute(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	if err := resp.Err(); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	total := resp.Total()
	if total < 0 {
		total = 0
	}
	return total, nil
}

// ListForUser returns the newest reviews received by userID.
func (r *SupabaseReviewRepository) ListForUser(ctx context.Context, userID string, limit int) ([]model.Review, error) {
	resp, err := r.db.From("reviews").
		Select("*").
		Eq("reviewee_id", userID).
		Order("created_at", false).
		Limit(limit).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	reviews := []model.Review{}
	if err := resp.Decode(&reviews); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

var (
	_ CategoryRepository    = (*SupabaseCategoryRepository)(nil)
	_ PlanRepository        = (*SupabasePlanRepository)(nil)
	_ TransactionRepository = (*SupabaseTransactionRepository)(nil)
	_ ReviewRepository      = (*SupabaseReviewRepository)(nil)
)
