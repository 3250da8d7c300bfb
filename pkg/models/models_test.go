package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var now = time.Date(2021, 4, 1, 12, 0, 0, 0, time.UTC)

func TestUserPermissionsDefaultByRole(t *testing.T) {
	admin, err := UserFromDocument(LegacyDocument{
		"uuid": "u1", "email": "a@example.com", "firstName": "A", "lastName": "B", "role": "admin",
	}, now)
	require.NoError(t, err)
	assert.Contains(t, admin.Permissions, "UM_PERM")

	researcher, err := UserFromDocument(LegacyDocument{
		"uuid": "u2", "email": "r@example.com", "firstName": "R", "lastName": "S",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "researcher", researcher.Role)
	assert.NotContains(t, researcher.Permissions, "UM_PERM")
	assert.Contains(t, researcher.Permissions, "QTN_PERM")
	assert.Equal(t, `["internal"]`, researcher.Sources)
}

func TestUserKeepsExplicitPermissions(t *testing.T) {
	user, err := UserFromDocument(LegacyDocument{
		"uuid": "u1", "email": "a@example.com", "firstName": "A", "lastName": "B", "role": "admin",
		"permissions": []interface{}{"QTN_PERM"},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, `["QTN_PERM"]`, user.Permissions)
}

func TestOrganizationTimestampsFromLegacyDateTime(t *testing.T) {
	created := time.Date(2019, 7, 14, 8, 30, 0, 0, time.UTC)
	org, err := OrganizationFromDocument(LegacyDocument{
		"organizationId": "org1",
		"name":           "ACME",
		"createdAt":      primitive.NewDateTimeFromTime(created),
	}, now)
	require.NoError(t, err)
	assert.True(t, org.CreatedAt.Equal(created))
	// updatedAt was absent so it defaults to the run time
	assert.True(t, org.UpdatedAt.Equal(now))
}

func TestDocumentDefaults(t *testing.T) {
	doc, err := DocumentFromDocument(LegacyDocument{
		"uuid":              "d1",
		"name":              "DMP",
		"questionnaireUuid": "q1",
		"templateId":        "t1",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "DoneDocumentState", doc.State)
	assert.Equal(t, "TemporallyDocumentDurability", doc.Durability)
	assert.Equal(t, "application/octet-stream", doc.ContentType)
	assert.Nil(t, doc.RetrievedAt)
	assert.Nil(t, doc.FinishedAt)
}

func TestTemplateFileGetsGeneratedUUID(t *testing.T) {
	file, err := TemplateFileFromDocument(LegacyDocument{
		"fileName": "default.html.j2", "templateId": "t1",
	}, now)
	require.NoError(t, err)
	assert.NotEmpty(t, file.UUID)

	other, err := TemplateFileFromDocument(LegacyDocument{
		"fileName": "other.html.j2", "templateId": "t1",
	}, now)
	require.NoError(t, err)
	assert.NotEqual(t, file.UUID, other.UUID)
}

func TestTemplateAssetOriginalUUIDFallsBackToUUID(t *testing.T) {
	asset, err := TemplateAssetFromDocument(LegacyDocument{
		"uuid": "a1", "fileName": "logo.png", "templateId": "t1",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "a1", asset.OriginalUUID)
	assert.Equal(t, "application/octet-stream", asset.ContentType)
}

func TestColumnsAndValuesStayAligned(t *testing.T) {
	entities := []interface {
		Columns() []string
		Values() []interface{}
	}{
		Organization{},
		User{},
		Package{},
		Template{},
		TemplateFile{},
		TemplateAsset{},
		Questionnaire{},
		Document{},
	}
	for _, entity := range entities {
		assert.Equal(t, len(entity.Columns()), len(entity.Values()), "%T", entity)
	}
}
