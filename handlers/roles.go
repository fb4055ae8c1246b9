package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akopov/azs-backoffice/backend/models"
	"github.com/gorilla/mux"
)

type RoleHandler struct {
	db *sql.DB
}

func NewRoleHandler(db *sql.DB) *RoleHandler {
	return &RoleHandler{db: db}
}

func scanRole(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Role, error) {
	var role models.Role
	var permissions string
	err := scanner.Scan(&role.ID, &role.Name, &role.Description, &permissions,
		&role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return role, err
	}
	if err := json.Unmarshal([]byte(permissions), &role.Permissions); err != nil {
		role.Permissions = []string{}
	}
	return role, nil
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, description, permissions, is_system, created_at, updated_at
		FROM roles ORDER BY name
	`)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	roles := []models.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			continue
		}
		roles = append(roles, role)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(roles)
}

func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	row := h.db.QueryRow(`
		SELECT id, name, description, permissions, is_system, created_at, updated_at
		FROM roles WHERE id = ?
	`, id)

	role, err := scanRole(row)
	if err == sql.ErrNoRows {
		http.Error(w, "Role not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(role)
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var role models.Role
	if err := json.NewDecoder(r.Body).Decode(&role); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if role.Name == "" {
		http.Error(w, "Role name is required", http.StatusBadRequest)
		return
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}

	permissions, _ := json.Marshal(role.Permissions)
	result, err := h.db.Exec(`
		INSERT INTO roles (name, description, permissions, is_system)
		VALUES (?, ?, ?, 0)
	`, role.Name, role.Description, string(permissions))

	if err != nil {
		http.Error(w, "Failed to create role", http.StatusInternalServerError)
		return
	}

	id, _ := result.LastInsertId()
	role.ID = int(id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(role)
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var isSystem bool
	err = h.db.QueryRow("SELECT is_system FROM roles WHERE id = ?", id).Scan(&isSystem)
	if err == sql.ErrNoRows {
		http.Error(w, "Role not found", http.StatusNotFound)
		return
	}
	if isSystem {
		http.Error(w, "Built-in roles cannot be modified", http.StatusConflict)
		return
	}

	var role models.Role
	if err := json.NewDecoder(r.Body).Decode(&role); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}

	permissions, _ := json.Marshal(role.Permissions)
	_, err = h.db.Exec(`
		UPDATE roles SET name = ?, description = ?, permissions = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, role.Name, role.Description, string(permissions), id)

	if err != nil {
		http.Error(w, "Failed to update role", http.StatusInternalServerError)
		return
	}

	role.ID = id
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(role)
}

func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	var isSystem bool
	err = h.db.QueryRow("SELECT is_system FROM roles WHERE id = ?", id).Scan(&isSystem)
	if err == sql.ErrNoRows {
		http.Error(w, "Role not found", http.StatusNotFound)
		return
	}
	if isSystem {
		http.Error(w, "Built-in roles cannot be deleted", http.StatusConflict)
		return
	}

	var assigned int
	h.db.QueryRow("SELECT COUNT(*) FROM admin_users WHERE role_id = ?", id).Scan(&assigned)
	if assigned > 0 {
		http.Error(w, "Role is assigned to users", http.StatusConflict)
		return
	}

	if _, err := h.db.Exec("DELETE FROM roles WHERE id = ?", id); err != nil {
		http.Error(w, "Failed to delete role", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
