package migration

import (
	"time"

	"github.com/ds-wizard/dsw2to3/pkg/models"
)

// zeroTime feeds constructors used only for blob-reference derivation,
// where timestamps are irrelevant.
var zeroTime time.Time

// Group names one migrated entity category.
type Group string

const (
	GroupOrganization  Group = "organization"
	GroupUser          Group = "user"
	GroupPackage       Group = "package"
	GroupTemplate      Group = "template"
	GroupTemplateFile  Group = "template_file"
	GroupTemplateAsset Group = "template_asset"
	GroupQuestionnaire Group = "questionnaire"
	GroupDocument      Group = "document"
)

// Reference declares one legacy field that must point at an existing record
// of the target group.
type Reference struct {
	Field    string
	Target   Group
	Optional bool
}

// BlobReference pairs one legacy binary object with its target object key.
type BlobReference struct {
	SourceBucket string
	SourceName   string
	Key          string
	ContentType  string
	OwnerGroup   Group
	OwnerID      string
}

// GroupSpec declares everything the engine needs to migrate one entity
// group: where its records come from, what makes them valid, how they map
// to the target table, and which binary object (if any) each record owns.
type GroupSpec struct {
	Name       Group
	Collection string
	// NestedField, when set, means records are embedded arrays inside the
	// Collection documents rather than top-level documents. Each child is
	// annotated with its parent's identifier under "templateId".
	NestedField string
	Table       string
	IDField     string
	Required    []string
	// UniqueFields are natural keys beyond the identifier; a later record
	// repeating an earlier record's value is rejected (first-seen-wins).
	UniqueFields []string
	References   []Reference
	Transform    TransformFunc
	Blob         func(doc models.LegacyDocument) *BlobReference
}

// SelfReferential reports whether the group references its own records.
func (s GroupSpec) SelfReferential() bool {
	for _, ref := range s.References {
		if ref.Target == s.Name {
			return true
		}
	}
	return false
}

const (
	assetSourceBucket    = "templateFileContents"
	documentSourceBucket = "documentContents"
)

// Groups is the fixed migration order. Every group's references point only
// at groups listed before it (or at itself).
var Groups = []GroupSpec{
	{
		Name:       GroupOrganization,
		Collection: "organizations",
		Table:      models.OrganizationTable,
		IDField:    "organizationId",
		Required:   []string{"organizationId", "name"},
		Transform:  transformOrganization,
	},
	{
		Name:         GroupUser,
		Collection:   "users",
		Table:        models.UserTable,
		IDField:      "uuid",
		Required:     []string{"uuid", "email", "firstName", "lastName", "role"},
		UniqueFields: []string{"email"},
		Transform:    transformUser,
	},
	{
		Name:       GroupPackage,
		Collection: "packages",
		Table:      models.PackageTable,
		IDField:    "id",
		Required:   []string{"id", "kmId", "version", "name"},
		References: []Reference{
			{Field: "previousPackageId", Target: GroupPackage, Optional: true},
			{Field: "forkOfPackageId", Target: GroupPackage, Optional: true},
			{Field: "mergeCheckpointPackageId", Target: GroupPackage, Optional: true},
		},
		Transform: transformPackage,
	},
	{
		Name:       GroupTemplate,
		Collection: "templates",
		Table:      models.TemplateTable,
		IDField:    "id",
		Required:   []string{"id", "templateId", "version", "name"},
		References: []Reference{
			{Field: "recommendedPackageId", Target: GroupPackage, Optional: true},
		},
		Transform: transformTemplate,
	},
	{
		Name:        GroupTemplateFile,
		Collection:  "templates",
		NestedField: "files",
		Table:       models.TemplateFileTable,
		IDField:     "uuid",
		Required:    []string{"fileName"},
		References: []Reference{
			{Field: "templateId", Target: GroupTemplate},
		},
		Transform: transformTemplateFile,
	},
	{
		Name:        GroupTemplateAsset,
		Collection:  "templates",
		NestedField: "assets",
		Table:       models.TemplateAssetTable,
		IDField:     "uuid",
		Required:    []string{"uuid", "fileName"},
		References: []Reference{
			{Field: "templateId", Target: GroupTemplate},
		},
		Transform: transformTemplateAsset,
		Blob: func(doc models.LegacyDocument) *BlobReference {
			asset, err := models.TemplateAssetFromDocument(doc, zeroTime)
			if err != nil {
				return nil
			}
			return &BlobReference{
				SourceBucket: assetSourceBucket,
				SourceName:   asset.OriginalUUID,
				Key:          "templates/" + asset.TemplateID + "/" + asset.UUID,
				ContentType:  asset.ContentType,
				OwnerGroup:   GroupTemplateAsset,
				OwnerID:      asset.UUID,
			}
		},
	},
	{
		Name:       GroupQuestionnaire,
		Collection: "questionnaires",
		Table:      models.QuestionnaireTable,
		IDField:    "uuid",
		Required:   []string{"uuid", "name", "packageId"},
		References: []Reference{
			{Field: "packageId", Target: GroupPackage},
			{Field: "templateId", Target: GroupTemplate, Optional: true},
			{Field: "creatorUuid", Target: GroupUser, Optional: true},
		},
		Transform: transformQuestionnaire,
	},
	{
		Name:       GroupDocument,
		Collection: "documents",
		Table:      models.DocumentTable,
		IDField:    "uuid",
		Required:   []string{"uuid", "name", "questionnaireUuid", "templateId"},
		References: []Reference{
			{Field: "questionnaireUuid", Target: GroupQuestionnaire},
			{Field: "templateId", Target: GroupTemplate},
			{Field: "creatorUuid", Target: GroupUser, Optional: true},
		},
		Transform: transformDocument,
		Blob: func(doc models.LegacyDocument) *BlobReference {
			id := models.Field(doc, "uuid")
			if id == "" {
				return nil
			}
			dmp, err := models.DocumentFromDocument(doc, zeroTime)
			if err != nil {
				return nil
			}
			return &BlobReference{
				SourceBucket: documentSourceBucket,
				SourceName:   id,
				Key:          "documents/" + id,
				ContentType:  dmp.ContentType,
				OwnerGroup:   GroupDocument,
				OwnerID:      id,
			}
		},
	},
}

// CleanupTables lists every target table child-first, so the pre-run wipe
// never trips a foreign key.
var CleanupTables = []string{
	models.DocumentTable,
	models.QuestionnaireTable,
	models.TemplateAssetTable,
	models.TemplateFileTable,
	models.TemplateTable,
	models.PackageTable,
	models.UserTable,
	models.OrganizationTable,
}

// SourceCollections lists the distinct legacy collections the engine
// expects to find, for the up-front schema check.
func SourceCollections() []string {
	seen := map[string]bool{}
	var out []string
	for _, spec := range Groups {
		if !seen[spec.Collection] {
			seen[spec.Collection] = true
			out = append(out, spec.Collection)
		}
	}
	return out
}

// GroupByName finds a group spec by its name.
func GroupByName(name Group) (GroupSpec, bool) {
	for _, spec := range Groups {
		if spec.Name == name {
			return spec, true
		}
	}
	return GroupSpec{}, false
}
