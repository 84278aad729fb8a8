package rekognition

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsrekognition "github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifid/internal/providers"
)

type fakeAPI struct {
	detectOut  *awsrekognition.DetectFacesOutput
	detectErr  error
	compareOut *awsrekognition.CompareFacesOutput
	compareErr error
}

func (f *fakeAPI) DetectFaces(context.Context, *awsrekognition.DetectFacesInput, ...func(*awsrekognition.Options)) (*awsrekognition.DetectFacesOutput, error) {
	return f.detectOut, f.detectErr
}

func (f *fakeAPI) CompareFaces(context.Context, *awsrekognition.CompareFacesInput, ...func(*awsrekognition.Options)) (*awsrekognition.CompareFacesOutput, error) {
	return f.compareOut, f.compareErr
}

func (f *fakeAPI) ListCollections(context.Context, *awsrekognition.ListCollectionsInput, ...func(*awsrekognition.Options)) (*awsrekognition.ListCollectionsOutput, error) {
	return &awsrekognition.ListCollectionsOutput{}, nil
}

var testImage = base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

func TestAnalyzeFaceMapsDominantFace(t *testing.T) {
	c := NewFromAPI(&fakeAPI{detectOut: &awsrekognition.DetectFacesOutput{
		FaceDetails: []types.FaceDetail{{
			Confidence: aws.Float32(99.2),
			Gender:     &types.Gender{Value: types.GenderTypeFemale},
			Quality:    &types.ImageQuality{Sharpness: aws.Float32(80), Brightness: aws.Float32(70)},
		}},
	}})

	got, err := c.AnalyzeFace(context.Background(), testImage)
	require.NoError(t, err)
	assert.True(t, got.FaceDetected)
	assert.True(t, got.Liveness)
	assert.Equal(t, "Female", got.Gender)
	assert.InDelta(t, 0.992, got.Confidence, 0.001)
}

func TestAnalyzeFaceNoFace(t *testing.T) {
	c := NewFromAPI(&fakeAPI{detectOut: &awsrekognition.DetectFacesOutput{}})

	got, err := c.AnalyzeFace(context.Background(), testImage)
	require.NoError(t, err)
	assert.False(t, got.FaceDetected)
}

func TestAnalyzeFaceLowQualityFailsLiveness(t *testing.T) {
	c := NewFromAPI(&fakeAPI{detectOut: &awsrekognition.DetectFacesOutput{
		FaceDetails: []types.FaceDetail{{
			Confidence: aws.Float32(99),
			Gender:     &types.Gender{Value: types.GenderTypeMale},
			Quality:    &types.ImageQuality{Sharpness: aws.Float32(5), Brightness: aws.Float32(70)},
		}},
	}})

	got, err := c.AnalyzeFace(context.Background(), testImage)
	require.NoError(t, err)
	assert.True(t, got.FaceDetected)
	assert.False(t, got.Liveness)
}

func TestAnalyzeFaceRejectsBadBase64(t *testing.T) {
	c := NewFromAPI(&fakeAPI{})

	_, err := c.AnalyzeFace(context.Background(), "!!not-base64!!")
	require.Error(t, err)
	assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
}

func TestAnalyzeFaceClassifiesAPIErrors(t *testing.T) {
	c := NewFromAPI(&fakeAPI{detectErr: &types.InvalidImageFormatException{}})

	_, err := c.AnalyzeFace(context.Background(), testImage)
	require.Error(t, err)
	assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	assert.Equal(t, providerName, providers.ProviderOf(err))

	c = NewFromAPI(&fakeAPI{detectErr: &types.ThrottlingException{}})
	_, err = c.AnalyzeFace(context.Background(), testImage)
	require.Error(t, err)
	assert.Equal(t, providers.ErrorProviderOutage, providers.GetCategory(err))

	c = NewFromAPI(&fakeAPI{detectErr: context.DeadlineExceeded})
	_, err = c.AnalyzeFace(context.Background(), testImage)
	require.Error(t, err)
	assert.Equal(t, providers.ErrorTimeout, providers.GetCategory(err))
}

func TestCompareFacesMatch(t *testing.T) {
	c := NewFromAPI(&fakeAPI{compareOut: &awsrekognition.CompareFacesOutput{
		FaceMatches: []types.CompareFacesMatch{{Similarity: aws.Float32(92)}},
	}})

	got, err := c.CompareFaces(context.Background(), testImage, testImage)
	require.NoError(t, err)
	assert.True(t, got.Match)
	assert.InDelta(t, 0.92, got.Confidence, 0.001)
}

func TestCompareFacesNoMatch(t *testing.T) {
	c := NewFromAPI(&fakeAPI{compareOut: &awsrekognition.CompareFacesOutput{}})

	got, err := c.CompareFaces(context.Background(), testImage, testImage)
	require.NoError(t, err)
	assert.False(t, got.Match)
	assert.Zero(t, got.Confidence)
}
