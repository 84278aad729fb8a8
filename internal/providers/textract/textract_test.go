package textract

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstextract "github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifid/internal/providers"
)

type fakeAPI struct {
	out *awstextract.AnalyzeDocumentOutput
	err error
}

func (f *fakeAPI) AnalyzeDocument(context.Context, *awstextract.AnalyzeDocumentInput, ...func(*awstextract.Options)) (*awstextract.AnalyzeDocumentOutput, error) {
	return f.out, f.err
}

type fakeFaceCheck struct {
	detected bool
	err      error
}

func (f *fakeFaceCheck) AnalyzeFace(context.Context, string) (*providers.FaceAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &providers.FaceAnalysis{FaceDetected: f.detected}, nil
}

func (f *fakeFaceCheck) Health(context.Context) error { return nil }

var testImage = base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

func queryBlock(id, alias, answerID string) types.Block {
	return types.Block{
		Id:        aws.String(id),
		BlockType: types.BlockTypeQuery,
		Query:     &types.Query{Alias: aws.String(alias)},
		Relationships: []types.Relationship{{
			Type: types.RelationshipTypeAnswer,
			Ids:  []string{answerID},
		}},
	}
}

func resultBlock(id, text string) types.Block {
	return types.Block{
		Id:        aws.String(id),
		BlockType: types.BlockTypeQueryResult,
		Text:      aws.String(text),
	}
}

func fullDocument() *awstextract.AnalyzeDocumentOutput {
	return &awstextract.AnalyzeDocumentOutput{Blocks: []types.Block{
		queryBlock("q1", aliasName, "a1"), resultBlock("a1", "Maria Silva Santos"),
		queryBlock("q2", aliasRGNumber, "a2"), resultBlock("a2", "12.345.678-9"),
		queryBlock("q3", aliasBirthDate, "a3"), resultBlock("a3", "15/03/1990"),
		queryBlock("q4", aliasGender, "a4"), resultBlock("a4", "F"),
		queryBlock("q5", aliasIssuingOrgan, "a5"), resultBlock("a5", "SSP/SP"),
		queryBlock("q6", aliasDocumentType, "a6"), resultBlock("a6", "RG"),
	}}
}

func TestExtractDocumentMapsAnswers(t *testing.T) {
	c := NewFromAPI(&fakeAPI{out: fullDocument()})

	got, err := c.ExtractDocument(context.Background(), testImage)
	require.NoError(t, err)
	assert.True(t, got.Authentic)
	assert.True(t, got.FaceInDocument)
	assert.Equal(t, providers.DocumentFields{
		Name:         "Maria Silva Santos",
		RGNumber:     "12.345.678-9",
		BirthDate:    "15/03/1990",
		Gender:       "F",
		IssuingOrgan: "SSP/SP",
		DocumentType: "RG",
	}, got.Fields)
}

func TestExtractDocumentMissingIdentifyingFields(t *testing.T) {
	c := NewFromAPI(&fakeAPI{out: &awstextract.AnalyzeDocumentOutput{Blocks: []types.Block{
		queryBlock("q1", aliasName, "a1"), resultBlock("a1", "Maria Silva Santos"),
	}}})

	got, err := c.ExtractDocument(context.Background(), testImage)
	require.NoError(t, err)
	assert.False(t, got.Authentic)
	assert.False(t, got.FaceInDocument)
}

func TestExtractDocumentFacePresenceCheck(t *testing.T) {
	c := NewFromAPI(&fakeAPI{out: fullDocument()}, WithFacePresenceCheck(&fakeFaceCheck{detected: false}))

	got, err := c.ExtractDocument(context.Background(), testImage)
	require.NoError(t, err)
	assert.True(t, got.Authentic)
	assert.False(t, got.FaceInDocument)
}

func TestExtractDocumentClassifiesAPIErrors(t *testing.T) {
	c := NewFromAPI(&fakeAPI{err: &types.UnsupportedDocumentException{}})
	_, err := c.ExtractDocument(context.Background(), testImage)
	require.Error(t, err)
	assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	assert.Equal(t, providerName, providers.ProviderOf(err))

	c = NewFromAPI(&fakeAPI{err: &types.AccessDeniedException{}})
	_, err = c.ExtractDocument(context.Background(), testImage)
	require.Error(t, err)
	assert.Equal(t, providers.ErrorAuthentication, providers.GetCategory(err))
}

func TestExtractDocumentRejectsBadBase64(t *testing.T) {
	c := NewFromAPI(&fakeAPI{})
	_, err := c.ExtractDocument(context.Background(), "***")
	require.Error(t, err)
	assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
}
