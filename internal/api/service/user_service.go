package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reviewhub/internal/access"
	"reviewhub/internal/api/dto"
	"reviewhub/internal/api/models"
	"reviewhub/internal/api/repository"
)

type UserService interface {
	List(ctx context.Context, actor access.Actor, search string, page repository.Page) (*dto.Paginated[dto.UserResponse], error)
	Create(ctx context.Context, actor access.Actor, req dto.CreateUserRequest) (*dto.UserResponse, error)
	Get(ctx context.Context, actor access.Actor, username string) (*dto.UserResponse, error)
	Update(ctx context.Context, actor access.Actor, username string, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, actor access.Actor, username string) error
	Me(ctx context.Context, actor access.Actor) (*dto.UserResponse, error)
	UpdateMe(ctx context.Context, actor access.Actor, req dto.UpdateUserRequest) (*dto.UserResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) List(ctx context.Context, actor access.Actor, search string, page repository.Page) (*dto.Paginated[dto.UserResponse], error) {
	if err := authorize(actor, access.Read, access.On(access.Account)); err != nil {
		return nil, err
	}
	users, total, err := s.userRepo.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return nil, err
	}
	data := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		data = append(data, *dto.FromModelToUserResponse(&users[i]))
	}
	return dto.NewPaginated(data, int(total), page.Number, page.Size), nil
}

func (s *userService) Create(ctx context.Context, actor access.Actor, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := authorize(actor, access.Create, access.On(access.Account)); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      models.RoleUser,
	}

	verr := &ValidationError{}
	if err := validateIdentity(user.Username, user.Email); err != nil {
		var fields *ValidationError
		if errors.As(err, &fields) {
			verr = fields
		}
	}
	if req.Role != "" {
		role, err := access.ParseRole(req.Role)
		if err != nil {
			verr.Add("role", err.Error())
		} else {
			user.Role = role.String()
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateUserField(err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return dto.FromModelToUserResponse(user), nil
}

func (s *userService) Get(ctx context.Context, actor access.Actor, username string) (*dto.UserResponse, error) {
	if err := authorize(actor, access.Read, access.On(access.Account)); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound("user", "get user", err)
	}
	return dto.FromModelToUserResponse(user), nil
}

func (s *userService) Update(ctx context.Context, actor access.Actor, username string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := authorize(actor, access.Update, access.On(access.Account)); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound("user", "get user", err)
	}
	return s.apply(ctx, user, req, true)
}

func (s *userService) Delete(ctx context.Context, actor access.Actor, username string) error {
	if err := authorize(actor, access.Delete, access.On(access.Account)); err != nil {
		return err
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return notFound("user", "get user", err)
	}
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return notFound("user", "delete user", err)
	}
	return nil
}

func (s *userService) Me(ctx context.Context, actor access.Actor) (*dto.UserResponse, error) {
	if err := authorize(actor, access.Read, access.On(access.Profile)); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound("user", "get user", err)
	}
	return dto.FromModelToUserResponse(user), nil
}

// UpdateMe edits the actor's own record. A role in the payload is dropped
// without error unless the actor may assign roles.
func (s *userService) UpdateMe(ctx context.Context, actor access.Actor, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := authorize(actor, access.Update, access.On(access.Profile)); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, notFound("user", "get user", err)
	}
	return s.apply(ctx, user, req, access.CanChangeRole(actor))
}

func (s *userService) apply(ctx context.Context, user *models.User, req dto.UpdateUserRequest, roleAllowed bool) (*dto.UserResponse, error) {
	verr := &ValidationError{}
	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
		if err := models.ValidateUsername(user.Username); err != nil {
			verr.Add("username", err.Error())
		}
	}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
		if err := validateEmail(user.Email); err != nil {
			verr.Add("email", err.Error())
		}
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Role != nil && roleAllowed {
		role, err := access.ParseRole(*req.Role)
		if err != nil {
			verr.Add("role", err.Error())
		} else {
			user.Role = role.String()
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateUserField(err)
		}
		return nil, notFound("user", "update user", err)
	}
	return dto.FromModelToUserResponse(user), nil
}
