package services

import (
	"context"
	"errors"

	"github.com/yoockh/yoointerview/internal/models"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	"github.com/yoockh/yoointerview/internal/utils"
)

// repoErr maps repository failures onto the AppError contract. Errors that
// already are AppErrors (returned from a mutation) pass through unchanged.
func repoErr(op string, err error) error {
	var ae *utils.AppError
	switch {
	case errors.As(err, &ae):
		return err
	case errors.Is(err, utils.ErrNotFound):
		return utils.E(utils.CodeNotFound, op, "interview not found", err)
	case errors.Is(err, utils.ErrConflict):
		return utils.E(utils.CodeConflict, op, "interview was modified concurrently, retry", err)
	default:
		return utils.E(utils.CodeInternal, op, "interview store failure", err)
	}
}

// checkOwner hides foreign interviews behind NOT_FOUND.
func checkOwner(op string, it *models.Interview, ownerID string) error {
	if it.OwnerID != ownerID {
		return utils.E(utils.CodeNotFound, op, "interview not found", nil)
	}
	return nil
}

func loadOwned(ctx context.Context, repo mongorepo.InterviewRepository, op, ownerID, id string) (*models.Interview, error) {
	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interviewId is required", nil)
	}
	it, err := repo.Get(ctx, id)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if err := checkOwner(op, it, ownerID); err != nil {
		return nil, err
	}
	return it, nil
}
