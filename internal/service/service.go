package service

import (
	"user_api/internal/connection"
	"user_api/internal/repository"
)

type Services struct {
	User  *UserService
	Guard *connection.Guard
}

func NewServices(repos *repository.Repositories, guard *connection.Guard) *Services {
	return &Services{
		User:  NewUserService(repos),
		Guard: guard,
	}
}
