package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ds-wizard/dsw2to3/pkg/models"
)

var transformNow = time.Date(2021, 4, 1, 12, 0, 0, 0, time.UTC)

func TestTransformOrganizationDefaults(t *testing.T) {
	row, err := transformOrganization(models.LegacyDocument{
		"organizationId": "org1",
		"name":           "ACME",
	}, NewReferenceIndex(), transformNow)

	require.NoError(t, err)
	assert.Equal(t, models.OrganizationTable, row.Table)
	assert.Equal(t, "org1", row.LegacyID)
	assert.Equal(t, "org1", row.TargetID)
	require.Equal(t, len(row.Columns), len(row.Values))

	byColumn := map[string]interface{}{}
	for i, column := range row.Columns {
		byColumn[column] = row.Values[i]
	}
	assert.Equal(t, "user", byColumn["role"])
	assert.Equal(t, true, byColumn["active"])
	assert.Nil(t, byColumn["logo"])
	// absent timestamps default to the run's start time
	assert.Equal(t, transformNow, byColumn["created_at"])
}

func TestTransformQuestionnaireRewritesReferences(t *testing.T) {
	idx := NewReferenceIndex()
	idx.Put(GroupPackage, "org1:km:1.0.0", "org1:km:1.0.0")
	idx.Put(GroupUser, "u1", "u1")

	row, err := transformQuestionnaire(models.LegacyDocument{
		"uuid":        "q1",
		"name":        "Project",
		"packageId":   "org1:km:1.0.0",
		"creatorUuid": "u1",
	}, idx, transformNow)

	require.NoError(t, err)
	byColumn := map[string]interface{}{}
	for i, column := range row.Columns {
		byColumn[column] = row.Values[i]
	}
	assert.Equal(t, "org1:km:1.0.0", byColumn["package_id"])
	assert.Equal(t, "u1", byColumn["creator_uuid"])
	assert.Nil(t, byColumn["template_id"])
	assert.Equal(t, "PrivateQuestionnaire", byColumn["visibility"])
	assert.Equal(t, "RestrictedQuestionnaire", byColumn["sharing"])
}

func TestTransformFailsOnUnresolvedReference(t *testing.T) {
	_, err := transformQuestionnaire(models.LegacyDocument{
		"uuid":      "q1",
		"name":      "Project",
		"packageId": "not-there",
	}, NewReferenceIndex(), transformNow)

	var unresolved *UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, GroupQuestionnaire, unresolved.Group)
	assert.Equal(t, "q1", unresolved.RecordID)
	assert.Equal(t, GroupPackage, unresolved.Target)
	assert.Equal(t, "not-there", unresolved.Reference)
}

func TestTransformPackageKeepsAbsentSelfReferencesNull(t *testing.T) {
	row, err := transformPackage(models.LegacyDocument{
		"id":      "p1",
		"kmId":    "km",
		"version": "1.0.0",
		"name":    "root",
	}, NewReferenceIndex(), transformNow)

	require.NoError(t, err)
	byColumn := map[string]interface{}{}
	for i, column := range row.Columns {
		byColumn[column] = row.Values[i]
	}
	assert.Nil(t, byColumn["previous_package_id"])
	assert.Nil(t, byColumn["fork_of_package_id"])
	assert.Nil(t, byColumn["merge_checkpoint_package_id"])
}

func TestTransformGroupResolvesSelfReferencesInPasses(t *testing.T) {
	engine := NewEngine(nil, nil, nil, Options{}, testLogger())
	spec := mustGroup(t, GroupPackage)
	idx := NewReferenceIndex()

	// p2 precedes its own predecessor in input order
	rows, err := engine.transformGroup(spec, []models.LegacyDocument{
		{"id": "p2", "kmId": "km", "version": "2.0.0", "name": "child", "previousPackageId": "p1"},
		{"id": "p1", "kmId": "km", "version": "1.0.0", "name": "root"},
	}, idx, transformNow)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	// the root was buffered first so the child's FK resolves
	assert.Equal(t, "p1", rows[0].LegacyID)
	assert.Equal(t, "p2", rows[1].LegacyID)
	assert.Equal(t, 2, idx.Size(GroupPackage))
}

func TestTransformGroupSurfacesReferenceCycles(t *testing.T) {
	engine := NewEngine(nil, nil, nil, Options{}, testLogger())
	spec := mustGroup(t, GroupPackage)

	_, err := engine.transformGroup(spec, []models.LegacyDocument{
		{"id": "p1", "kmId": "km", "version": "1.0.0", "name": "a", "previousPackageId": "p2"},
		{"id": "p2", "kmId": "km", "version": "2.0.0", "name": "b", "previousPackageId": "p1"},
	}, NewReferenceIndex(), transformNow)

	var unresolved *UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
}

func TestTransformTemplateFileGeneratesUUIDWhenAbsent(t *testing.T) {
	idx := NewReferenceIndex()
	idx.Put(GroupTemplate, "t1", "t1")

	row, err := transformTemplateFile(models.LegacyDocument{
		"fileName":   "default.html.j2",
		"content":    "<html>",
		"templateId": "t1",
	}, idx, transformNow)

	require.NoError(t, err)
	assert.NotEmpty(t, row.TargetID)
	assert.Equal(t, row.LegacyID, row.TargetID)
}

func TestBlobReferenceForTemplateAsset(t *testing.T) {
	spec := mustGroup(t, GroupTemplateAsset)
	ref := spec.Blob(models.LegacyDocument{
		"uuid":        "a1",
		"fileName":    "logo.png",
		"contentType": "image/png",
		"templateId":  "org1:tpl:1.0.0",
	})

	require.NotNil(t, ref)
	assert.Equal(t, assetSourceBucket, ref.SourceBucket)
	assert.Equal(t, "a1", ref.SourceName)
	assert.Equal(t, "templates/org1:tpl:1.0.0/a1", ref.Key)
	assert.Equal(t, "image/png", ref.ContentType)
}

func TestBlobReferenceUsesOriginalUUIDWhenPresent(t *testing.T) {
	spec := mustGroup(t, GroupTemplateAsset)
	ref := spec.Blob(models.LegacyDocument{
		"uuid":         "a1",
		"originalUuid": "legacy-a1",
		"fileName":     "logo.png",
		"templateId":   "t1",
	})

	require.NotNil(t, ref)
	assert.Equal(t, "legacy-a1", ref.SourceName)
	assert.Equal(t, "templates/t1/a1", ref.Key)
}
