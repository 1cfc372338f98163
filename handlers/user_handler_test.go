package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/repositories"
	"github.com/unistudious/backend/services"
	"github.com/unistudious/backend/services/users"
	"go.uber.org/zap"
)

func TestUserHandler_HandleList(t *testing.T) {
	logger := zap.NewNop()
	admin := newUser(models.RoleAdmin)

	t.Run("filter by role", func(t *testing.T) {
		svc := new(MockUserService)
		handler := NewUserHandler(svc, logger)
		role := models.RoleStudent
		svc.On("List", mock.Anything, admin.Principal(), repositories.UserFilter{
			Role: &role,
			Page: repositories.Page{Limit: services.DefaultPageLimit},
		}).Return([]*models.User{newUser(models.RoleStudent)}, nil)

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(t, http.MethodGet, "/api/users?role=student", nil, admin))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown role", func(t *testing.T) {
		svc := new(MockUserService)
		handler := NewUserHandler(svc, logger)

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(t, http.MethodGet, "/api/users?role=janitor", nil, admin))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeErrorEnvelope(t, w)
		assert.Equal(t, "role", env.Error.Details["field"])
	})

	t.Run("professors", func(t *testing.T) {
		svc := new(MockUserService)
		handler := NewUserHandler(svc, logger)
		role := models.RoleProfessor
		svc.On("List", mock.Anything, admin.Principal(), repositories.UserFilter{
			Role: &role,
			Page: repositories.Page{Limit: services.DefaultPageLimit},
		}).Return([]*models.User{}, nil)

		w := httptest.NewRecorder()
		handler.HandleListProfessors(w, newRequest(t, http.MethodGet, "/api/profs", nil, admin))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestUserHandler_HandleCreate(t *testing.T) {
	logger := zap.NewNop()
	admin := newUser(models.RoleAdmin)

	t.Run("professor with speciality", func(t *testing.T) {
		svc := new(MockUserService)
		handler := NewUserHandler(svc, logger)
		svc.On("Create", mock.Anything, admin.Principal(), users.CreateInput{
			FirstName:  "Alan",
			LastName:   "Turing",
			Email:      "alan@school.test",
			Password:   "enigma-1912",
			Role:       models.RoleProfessor,
			Speciality: strPtr("Mathematics"),
		}).Return(newUser(models.RoleProfessor), nil)

		body := map[string]interface{}{
			"first_name": "Alan",
			"last_name":  "Turing",
			"email":      "alan@school.test",
			"password":   "enigma-1912",
			"role":       "professor",
			"speciality": "Mathematics",
		}
		w := httptest.NewRecorder()
		handler.HandleCreate(w, newRequest(t, http.MethodPost, "/api/users", body, admin))

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	tests := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{
			name:  "unknown role",
			body:  map[string]interface{}{"first_name": "A", "last_name": "B", "email": "a@school.test", "password": "long-enough", "role": "janitor"},
			field: "role",
		},
		{
			name:  "student without level",
			body:  map[string]interface{}{"first_name": "A", "last_name": "B", "email": "a@school.test", "password": "long-enough", "role": "student"},
			field: "school_level",
		},
		{
			name:  "admin with speciality",
			body:  map[string]interface{}{"first_name": "A", "last_name": "B", "email": "a@school.test", "password": "long-enough", "role": "admin", "speciality": "Physics"},
			field: "speciality",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockUserService)
			handler := NewUserHandler(svc, logger)

			w := httptest.NewRecorder()
			handler.HandleCreate(w, newRequest(t, http.MethodPost, "/api/users", tt.body, admin))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decodeErrorEnvelope(t, w)
			assert.Contains(t, env.Error.Details, tt.field)
			svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("create professor route forces the role", func(t *testing.T) {
		svc := new(MockUserService)
		handler := NewUserHandler(svc, logger)
		svc.On("Create", mock.Anything, admin.Principal(), mock.MatchedBy(func(in users.CreateInput) bool {
			return in.Role == models.RoleProfessor && in.Email == "grace@school.test"
		})).Return(newUser(models.RoleProfessor), nil)

		body := map[string]interface{}{"first_name": "Grace", "last_name": "Hopper", "email": "grace@school.test", "password": "cobol-1959"}
		w := httptest.NewRecorder()
		handler.HandleCreateProfessor(w, newRequest(t, http.MethodPost, "/api/profs", body, admin))

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestUserHandler_HandleUpdate(t *testing.T) {
	svc := new(MockUserService)
	handler := NewUserHandler(svc, zap.NewNop())
	admin := newUser(models.RoleAdmin)
	id := uuid.New()

	svc.On("Update", mock.Anything, admin.Principal(), id, mock.MatchedBy(func(in users.UpdateInput) bool {
		return in.Role != nil && *in.Role == models.RoleProfessor &&
			in.Speciality != nil && *in.Speciality == "Physics" &&
			in.Email == nil
	})).Return(newUser(models.RoleProfessor), nil)

	w := httptest.NewRecorder()
	handler.HandleUpdate(w, newRequest(t, http.MethodPut, "/api/users/"+id.String(),
		map[string]interface{}{"role": "professor", "speciality": "Physics"}, admin, "id", id.String()))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_HandleDelete(t *testing.T) {
	logger := zap.NewNop()
	admin := newUser(models.RoleAdmin)
	id := uuid.New()

	t.Run("professor still teaching", func(t *testing.T) {
		svc := new(MockUserService)
		handler := NewUserHandler(svc, logger)
		svc.On("Delete", mock.Anything, admin.Principal(), id).Return(
			services.NewDomainError(services.ErrorTypeConflict, "professor still teaches courses", nil).WithDetail("courses", 2))

		w := httptest.NewRecorder()
		handler.HandleDelete(w, newRequest(t, http.MethodDelete, "/api/users/"+id.String(), nil, admin, "id", id.String()))

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeErrorEnvelope(t, w)
		assert.Equal(t, float64(2), env.Error.Details["courses"])
	})

	t.Run("non admin", func(t *testing.T) {
		svc := new(MockUserService)
		handler := NewUserHandler(svc, logger)
		student := newUser(models.RoleStudent)
		svc.On("Delete", mock.Anything, student.Principal(), id).Return(services.Forbidden("user", "delete"))

		w := httptest.NewRecorder()
		handler.HandleDelete(w, newRequest(t, http.MethodDelete, "/api/users/"+id.String(), nil, student, "id", id.String()))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
