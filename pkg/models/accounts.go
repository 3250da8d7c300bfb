package models

import (
	"time"

	"github.com/ds-wizard/dsw2to3/pkg/utils"
)

const (
	OrganizationTable = "organization"
	UserTable         = "user_entity"
)

// Organization is one row of the organization table.
type Organization struct {
	OrganizationID string
	Name           string
	Description    string
	Email          string
	Role           string
	Token          string
	Active         bool
	Logo           interface{}
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func OrganizationFromDocument(doc LegacyDocument, now time.Time) (Organization, error) {
	return Organization{
		OrganizationID: Field(doc, "organizationId"),
		Name:           Field(doc, "name"),
		Description:    Field(doc, "description"),
		Email:          Field(doc, "email"),
		Role:           utils.ToStringOr(doc["role"], "user"),
		Token:          Field(doc, "token"),
		Active:         utils.ToBool(doc["active"], true),
		Logo:           utils.ToNullableString(doc["logo"]),
		CreatedAt:      utils.ToTime(doc["createdAt"], now),
		UpdatedAt:      utils.ToTime(doc["updatedAt"], now),
	}, nil
}

func (o Organization) GetID() string { return o.OrganizationID }

func (o Organization) Columns() []string {
	return []string{
		"organization_id",
		"name",
		"description",
		"email",
		"role",
		"token",
		"active",
		"logo",
		"created_at",
		"updated_at",
	}
}

func (o Organization) Values() []interface{} {
	return []interface{}{
		o.OrganizationID,
		o.Name,
		o.Description,
		o.Email,
		o.Role,
		o.Token,
		o.Active,
		o.Logo,
		o.CreatedAt,
		o.UpdatedAt,
	}
}

// User is one row of the user_entity table.
type User struct {
	UUID         string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Affiliation  interface{}
	Sources      string
	Role         string
	Permissions  string
	Active       bool
	ImageURL     interface{}
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// rolePermissions mirrors the defaults the target system seeds for each
// role; legacy documents predate per-user permissions.
var rolePermissions = map[string][]string{
	"admin": {
		"UM_PERM", "ORG_PERM", "KM_PERM", "KM_UPGRADE_PERM", "KM_PUBLISH_PERM",
		"PM_READ_PERM", "PM_WRITE_PERM", "QTN_PERM", "DMP_PERM", "CFG_PERM",
		"SUBM_PERM", "TML_PERM", "DOC_PERM",
	},
	"dataSteward": {
		"KM_PERM", "KM_UPGRADE_PERM", "KM_PUBLISH_PERM", "PM_READ_PERM",
		"PM_WRITE_PERM", "QTN_PERM", "DMP_PERM", "SUBM_PERM", "TML_PERM",
	},
	"researcher": {"PM_READ_PERM", "QTN_PERM", "DMP_PERM", "SUBM_PERM"},
}

func UserFromDocument(doc LegacyDocument, now time.Time) (User, error) {
	role := utils.ToStringOr(doc["role"], "researcher")

	permissions := utils.ToStringSlice(doc["permissions"])
	if len(permissions) == 0 {
		permissions = rolePermissions[role]
	}
	if permissions == nil {
		permissions = []string{}
	}
	permissionsJSON, err := utils.ToJSON(permissions, "[]")
	if err != nil {
		return User{}, err
	}
	sources, err := utils.ToJSON(doc["sources"], `["internal"]`)
	if err != nil {
		return User{}, err
	}

	return User{
		UUID:         Field(doc, "uuid"),
		FirstName:    Field(doc, "firstName"),
		LastName:     Field(doc, "lastName"),
		Email:        Field(doc, "email"),
		PasswordHash: Field(doc, "passwordHash"),
		Affiliation:  utils.ToNullableString(doc["affiliation"]),
		Sources:      sources,
		Role:         role,
		Permissions:  permissionsJSON,
		Active:       utils.ToBool(doc["active"], false),
		ImageURL:     utils.ToNullableString(doc["imageUrl"]),
		CreatedAt:    utils.ToTime(doc["createdAt"], now),
		UpdatedAt:    utils.ToTime(doc["updatedAt"], now),
	}, nil
}

func (u User) GetID() string { return u.UUID }

func (u User) Columns() []string {
	return []string{
		"uuid",
		"first_name",
		"last_name",
		"email",
		"password_hash",
		"affiliation",
		"sources",
		"role",
		"permissions",
		"active",
		"image_url",
		"created_at",
		"updated_at",
	}
}

func (u User) Values() []interface{} {
	return []interface{}{
		u.UUID,
		u.FirstName,
		u.LastName,
		u.Email,
		u.PasswordHash,
		u.Affiliation,
		u.Sources,
		u.Role,
		u.Permissions,
		u.Active,
		u.ImageURL,
		u.CreatedAt,
		u.UpdatedAt,
	}
}
