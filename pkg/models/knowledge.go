package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ds-wizard/dsw2to3/pkg/utils"
)

const (
	PackageTable       = "package"
	TemplateTable      = "template"
	TemplateFileTable  = "template_file"
	TemplateAssetTable = "template_asset"
)

// Package is one row of the package table. Packages may chain to other
// packages through three optional self-references.
type Package struct {
	ID                       string
	Name                     string
	OrganizationID           string
	KmID                     string
	Version                  string
	MetamodelVersion         int
	Description              string
	Readme                   string
	License                  string
	PreviousPackageID        interface{}
	ForkOfPackageID          interface{}
	MergeCheckpointPackageID interface{}
	Events                   string
	CreatedAt                time.Time
}

func PackageFromDocument(doc LegacyDocument, now time.Time) (Package, error) {
	events, err := utils.ToJSON(doc["events"], "[]")
	if err != nil {
		return Package{}, err
	}
	return Package{
		ID:                       Field(doc, "id"),
		Name:                     Field(doc, "name"),
		OrganizationID:           Field(doc, "organizationId"),
		KmID:                     Field(doc, "kmId"),
		Version:                  Field(doc, "version"),
		MetamodelVersion:         metamodelVersion(doc),
		Description:              Field(doc, "description"),
		Readme:                   Field(doc, "readme"),
		License:                  Field(doc, "license"),
		PreviousPackageID:        utils.ToNullableString(doc["previousPackageId"]),
		ForkOfPackageID:          utils.ToNullableString(doc["forkOfPackageId"]),
		MergeCheckpointPackageID: utils.ToNullableString(doc["mergeCheckpointPackageId"]),
		Events:                   events,
		CreatedAt:                utils.ToTime(doc["createdAt"], now),
	}, nil
}

func metamodelVersion(doc LegacyDocument) int {
	switch v := doc["metamodelVersion"].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 1
	}
}

func (p Package) GetID() string { return p.ID }

func (p Package) Columns() []string {
	return []string{
		"id",
		"name",
		"organization_id",
		"km_id",
		"version",
		"metamodel_version",
		"description",
		"readme",
		"license",
		"previous_package_id",
		"fork_of_package_id",
		"merge_checkpoint_package_id",
		"events",
		"created_at",
	}
}

func (p Package) Values() []interface{} {
	return []interface{}{
		p.ID,
		p.Name,
		p.OrganizationID,
		p.KmID,
		p.Version,
		p.MetamodelVersion,
		p.Description,
		p.Readme,
		p.License,
		p.PreviousPackageID,
		p.ForkOfPackageID,
		p.MergeCheckpointPackageID,
		p.Events,
		p.CreatedAt,
	}
}

// Template is one row of the template table.
type Template struct {
	ID                   string
	Name                 string
	OrganizationID       string
	TemplateID           string
	Version              string
	MetamodelVersion     int
	Description          string
	Readme               string
	License              string
	RecommendedPackageID interface{}
	AllowedPackages      string
	Formats              string
	CreatedAt            time.Time
}

func TemplateFromDocument(doc LegacyDocument, now time.Time) (Template, error) {
	allowedPackages, err := utils.ToJSON(doc["allowedPackages"], "[]")
	if err != nil {
		return Template{}, err
	}
	formats, err := utils.ToJSON(doc["formats"], "[]")
	if err != nil {
		return Template{}, err
	}
	return Template{
		ID:                   Field(doc, "id"),
		Name:                 Field(doc, "name"),
		OrganizationID:       Field(doc, "organizationId"),
		TemplateID:           Field(doc, "templateId"),
		Version:              Field(doc, "version"),
		MetamodelVersion:     metamodelVersion(doc),
		Description:          Field(doc, "description"),
		Readme:               Field(doc, "readme"),
		License:              Field(doc, "license"),
		RecommendedPackageID: utils.ToNullableString(doc["recommendedPackageId"]),
		AllowedPackages:      allowedPackages,
		Formats:              formats,
		CreatedAt:            utils.ToTime(doc["createdAt"], now),
	}, nil
}

func (t Template) GetID() string { return t.ID }

func (t Template) Columns() []string {
	return []string{
		"id",
		"name",
		"organization_id",
		"template_id",
		"version",
		"metamodel_version",
		"description",
		"readme",
		"license",
		"recommended_package_id",
		"allowed_packages",
		"formats",
		"created_at",
	}
}

func (t Template) Values() []interface{} {
	return []interface{}{
		t.ID,
		t.Name,
		t.OrganizationID,
		t.TemplateID,
		t.Version,
		t.MetamodelVersion,
		t.Description,
		t.Readme,
		t.License,
		t.RecommendedPackageID,
		t.AllowedPackages,
		t.Formats,
		t.CreatedAt,
	}
}

// TemplateFile is one textual file belonging to a template; in the legacy
// store it lives inline in the template document's files array.
type TemplateFile struct {
	UUID       string
	TemplateID string
	FileName   string
	Content    string
}

func TemplateFileFromDocument(doc LegacyDocument, _ time.Time) (TemplateFile, error) {
	id := Field(doc, "uuid")
	if id == "" {
		// old templates predate file UUIDs
		id = uuid.NewString()
	}
	return TemplateFile{
		UUID:       id,
		TemplateID: Field(doc, "templateId"),
		FileName:   Field(doc, "fileName"),
		Content:    Field(doc, "content"),
	}, nil
}

func (f TemplateFile) GetID() string { return f.UUID }

func (f TemplateFile) Columns() []string {
	return []string{"uuid", "template_id", "file_name", "content"}
}

func (f TemplateFile) Values() []interface{} {
	return []interface{}{f.UUID, f.TemplateID, f.FileName, f.Content}
}

// TemplateAsset is one binary asset belonging to a template. The row only
// carries metadata; the content itself moves through the blob migrator,
// keyed by the asset's legacy UUID.
type TemplateAsset struct {
	UUID        string
	TemplateID  string
	FileName    string
	ContentType string

	// OriginalUUID locates the binary in the legacy blob store; it is not
	// a target column.
	OriginalUUID string
}

func TemplateAssetFromDocument(doc LegacyDocument, _ time.Time) (TemplateAsset, error) {
	id := Field(doc, "uuid")
	return TemplateAsset{
		UUID:         id,
		TemplateID:   Field(doc, "templateId"),
		FileName:     Field(doc, "fileName"),
		ContentType:  utils.ToStringOr(doc["contentType"], "application/octet-stream"),
		OriginalUUID: utils.ToStringOr(doc["originalUuid"], id),
	}, nil
}

func (a TemplateAsset) GetID() string { return a.UUID }

func (a TemplateAsset) Columns() []string {
	return []string{"uuid", "template_id", "file_name", "content_type"}
}

func (a TemplateAsset) Values() []interface{} {
	return []interface{}{a.UUID, a.TemplateID, a.FileName, a.ContentType}
}
