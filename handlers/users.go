package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/akopov/azs-backoffice/backend/models"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type UserHandler struct {
	db *sql.DB
}

func NewUserHandler(db *sql.DB) *UserHandler {
	return &UserHandler{db: db}
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	RoleID   *int   `json:"role_id"`
	IsActive *bool  `json:"is_active"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT u.id, u.username, u.full_name, u.role_id, u.is_active,
		       r.name, u.created_at, u.updated_at
		FROM admin_users u
		LEFT JOIN roles r ON r.id = u.role_id
		ORDER BY u.username
	`)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	users := []models.AdminUser{}
	for rows.Next() {
		var u models.AdminUser
		var roleName sql.NullString
		err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.RoleID, &u.IsActive,
			&roleName, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			continue
		}
		u.RoleName = roleName.String
		users = append(users, u)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var u models.AdminUser
	var roleName sql.NullString
	err = h.db.QueryRow(`
		SELECT u.id, u.username, u.full_name, u.role_id, u.is_active,
		       r.name, u.created_at, u.updated_at
		FROM admin_users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = ?
	`, id).Scan(&u.ID, &u.Username, &u.FullName, &u.RoleID, &u.IsActive,
		&roleName, &u.CreatedAt, &u.UpdatedAt)

	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	u.RoleName = roleName.String

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	result, err := h.db.Exec(`
		INSERT INTO admin_users (username, password_hash, full_name, role_id, is_active)
		VALUES (?, ?, ?, ?, ?)
	`, req.Username, string(hash), req.FullName, req.RoleID, isActive)

	if err != nil {
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	log.Printf("Admin user created: %s (id=%d)", req.Username, id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"id": id, "username": req.Username})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	_, err = h.db.Exec(`
		UPDATE admin_users SET
			full_name = ?, role_id = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, req.FullName, req.RoleID, isActive, id)

	if err != nil {
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	// Password change through this endpoint is optional
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Failed to hash password", http.StatusInternalServerError)
			return
		}
		if _, err := h.db.Exec(`UPDATE admin_users SET password_hash = ? WHERE id = ?`, string(hash), id); err != nil {
			http.Error(w, "Failed to update password", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"id": id})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	// Keep at least one active administrator
	var admins int
	h.db.QueryRow(`
		SELECT COUNT(*) FROM admin_users u
		JOIN roles r ON r.id = u.role_id
		WHERE r.name = 'administrator' AND u.is_active = 1 AND u.id != ?
	`, id).Scan(&admins)
	if admins == 0 {
		http.Error(w, "Cannot delete the last administrator", http.StatusConflict)
		return
	}

	_, err = h.db.Exec("DELETE FROM admin_users WHERE id = ?", id)
	if err != nil {
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
