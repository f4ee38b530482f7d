package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/farmtrack/apiserver/types"
)

// OperatorRepository defines persistence operations for operators.
type OperatorRepository interface {
	List(ctx context.Context) ([]types.Operator, error)
	Get(ctx context.Context, id int) (types.Operator, error)
	Create(ctx context.Context, operator types.Operator) (types.Operator, error)
	Update(ctx context.Context, operator types.Operator) (types.Operator, error)
	Delete(ctx context.Context, id int) error
}

// OperatorService encapsulates operator use-cases.
type OperatorService struct {
	repo OperatorRepository
}

func NewOperatorService(repo OperatorRepository) *OperatorService {
	return &OperatorService{repo: repo}
}

func (s *OperatorService) List(ctx context.Context) ([]types.Operator, error) {
	return s.repo.List(ctx)
}

func (s *OperatorService) Get(ctx context.Context, id int) (types.Operator, error) {
	return s.repo.Get(ctx, id)
}

func (s *OperatorService) Create(ctx context.Context, operator types.Operator) (types.Operator, error) {
	if err := validateOperator(&operator); err != nil {
		return types.Operator{}, err
	}
	return s.repo.Create(ctx, operator)
}

func (s *OperatorService) Update(ctx context.Context, operator types.Operator) (types.Operator, error) {
	if err := validateOperator(&operator); err != nil {
		return types.Operator{}, err
	}
	return s.repo.Update(ctx, operator)
}

func (s *OperatorService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func validateOperator(operator *types.Operator) error {
	operator.Name = strings.TrimSpace(operator.Name)
	operator.Shift = strings.TrimSpace(operator.Shift)
	if operator.Name == "" || operator.Shift == "" {
		return fmt.Errorf("%w: name and shift are required", ErrInvalidInput)
	}
	return nil
}
