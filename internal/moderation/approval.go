package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/internal/domain"
	"github.com/m3rciful/telecopter/internal/lifecycle"
)

const usersComponent = "service.users"

// AccessResult describes the account state after RequestAccess or Register.
type AccessResult int

const (
	AccessNew AccessResult = iota
	AccessSubmitted
	AccessPending
	AccessApproved
	AccessRejected
)

func accessOf(s domain.ApprovalStatus) AccessResult {
	switch s {
	case domain.ApprovalPending:
		return AccessPending
	case domain.ApprovalApproved:
		return AccessApproved
	case domain.ApprovalRejected:
		return AccessRejected
	}
	return AccessNew
}

// Register records the Telegram profile and returns the user's access state.
func (s *Service) Register(ctx context.Context, p domain.UserProfile) (*domain.User, AccessResult, error) {
	u, err := s.store.UpsertUser(ctx, p)
	if err != nil {
		return nil, AccessNew, err
	}
	return u, accessOf(u.ApprovalStatus), nil
}

// IsApproved reports whether userID may use the bot.
func (s *Service) IsApproved(ctx context.Context, userID int64) (bool, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil || u == nil {
		return false, err
	}
	return u.ApprovalStatus == domain.ApprovalApproved, nil
}

// RequestAccess moves a new user to pending_approval and makes sure one
// open user_approval task exists for them. A pending user without a task,
// left behind by an earlier failure, gets the task now. Other users are
// reported as they are.
func (s *Service) RequestAccess(ctx context.Context, p domain.UserProfile) (AccessResult, error) {
	u, err := s.store.UpsertUser(ctx, p)
	if err != nil {
		return AccessNew, err
	}
	status := u.ApprovalStatus
	if status == domain.ApprovalNew {
		moved, err := s.store.SetApprovalStatus(ctx, u.UserID, domain.ApprovalPending, []domain.ApprovalStatus{domain.ApprovalNew})
		if err != nil {
			return AccessNew, err
		}
		if !moved {
			cur, err := s.store.GetUser(ctx, u.UserID)
			if err != nil || cur == nil {
				return AccessNew, err
			}
			return accessOf(cur.ApprovalStatus), nil
		}
	} else if status != domain.ApprovalPending {
		return accessOf(status), nil
	}

	task, err := s.store.FindOpenApprovalTask(ctx, u.UserID)
	if err != nil {
		return AccessPending, err
	}
	if task != nil {
		if status == domain.ApprovalPending {
			return AccessPending, nil
		}
	} else {
		task, err = s.store.CreateRequest(ctx, domain.NewRequest{
			UserID:      u.UserID,
			RequestType: domain.TypeUserApproval,
			Title:       "User Access Request: " + u.DisplayName(),
		})
		if err != nil {
			return AccessPending, err
		}
	}
	ctx = logger.WithRequestID(ctx, task.RequestID)
	logger.Info(ctx, usersComponent, "users.access_requested",
		slog.String("status", "ok"),
		slog.Bool("repaired", status == domain.ApprovalPending),
	)
	if s.admins != nil {
		if err := s.admins.NotifyAdmins(ctx, *task); err != nil {
			logger.Warn(ctx, usersComponent, "users.notify_admin", slog.String("status", "fail"), slog.Any("err", err))
		}
	}
	return AccessSubmitted, nil
}

// ResolveUserApproval approves or rejects the account behind taskID. A task
// that is no longer pending short-circuits with ResultAlreadyProcessed.
func (s *Service) ResolveUserApproval(ctx context.Context, adminID, taskID int64, approve bool) (Result, error) {
	ctx = logger.WithRequestID(ctx, taskID)
	action := domain.ActionUserRejectedViaTask
	target := domain.StatusDenied
	userStatus := domain.ApprovalRejected
	if approve {
		action = domain.ActionUserApprovedViaTask
		target = domain.StatusApproved
		userStatus = domain.ApprovalApproved
	}

	current, done, err := s.engine.CheckAlreadyProcessed(ctx, taskID)
	if err != nil {
		return Result{}, err
	}
	if done {
		return alreadyProcessed(taskID, action, current), nil
	}

	task, err := s.store.GetRequest(ctx, taskID)
	if err != nil {
		return Result{}, err
	}
	if task == nil {
		return Result{}, &lifecycle.Error{Kind: lifecycle.ErrRequestNotFound, RequestID: taskID}
	}
	if task.RequestType != domain.TypeUserApproval {
		return Result{}, &lifecycle.Error{Kind: lifecycle.ErrUnsupportedTransition, RequestID: taskID,
			Err: fmt.Errorf("%s is not an approval task", task.RequestType)}
	}

	res, err := s.apply(ctx, adminID, taskID, target, action, nil)
	if err != nil || res.Kind == ResultAlreadyProcessed {
		return res, err
	}

	moved, err := s.store.SetApprovalStatus(ctx, task.UserID, userStatus, []domain.ApprovalStatus{domain.ApprovalPending})
	if err != nil {
		return res, err
	}
	if !moved {
		logger.Warn(ctx, usersComponent, "users.approval",
			slog.String("status", "skip"),
			slog.Int64("target_user_id", task.UserID),
			slog.String("reason", "not_pending"),
		)
	}

	name := fmt.Sprint(task.UserID)
	if u, err := s.store.GetUser(ctx, task.UserID); err == nil && u != nil {
		name = u.DisplayName()
	}
	verb := "rejected"
	if approve {
		verb = "approved"
	}
	res.Message = fmt.Sprintf("User %s (ID: %d) has been %s. Task %d closed.", name, task.UserID, verb, taskID)
	if !res.Outcome.UserNotified {
		res.Message += " (failed to notify user)"
	}
	return res, nil
}
