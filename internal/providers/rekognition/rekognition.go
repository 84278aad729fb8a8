// Package rekognition implements face analysis and face matching on top of
// AWS Rekognition.
package rekognition

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"verifid/internal/providers"
)

const providerName = "rekognition"

// Rekognition reports confidences on a 0-100 scale; the capability
// interfaces use 0.0-1.0.
const confidenceScale = 100.0

// similarityThreshold is the minimum similarity (0-100) for CompareFaces to
// report a candidate match at all. Matches below it land in UnmatchedFaces.
const similarityThreshold float32 = 80.0

// Single-image liveness proxy: a capture this sharp and well-lit is treated
// as live. Session-based liveness needs the streaming API and a dedicated
// client flow.
const (
	minSharpness  float32 = 20.0
	minBrightness float32 = 25.0
)

// api is the subset of the Rekognition client the adapter calls.
type api interface {
	DetectFaces(ctx context.Context, in *rekognition.DetectFacesInput, opts ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	CompareFaces(ctx context.Context, in *rekognition.CompareFacesInput, opts ...func(*rekognition.Options)) (*rekognition.CompareFacesOutput, error)
	ListCollections(ctx context.Context, in *rekognition.ListCollectionsInput, opts ...func(*rekognition.Options)) (*rekognition.ListCollectionsOutput, error)
}

// Client adapts AWS Rekognition to the FaceAnalyzer and FaceMatcher
// capabilities.
type Client struct {
	api api
}

// New builds a client using the default AWS credential chain.
func New(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &Client{api: rekognition.NewFromConfig(cfg)}, nil
}

// NewFromAPI builds a client over an existing API surface. Used by tests.
func NewFromAPI(a api) *Client {
	return &Client{api: a}
}

// AnalyzeFace runs DetectFaces on the image and maps the dominant face to the
// normalized analysis result.
func (c *Client) AnalyzeFace(ctx context.Context, imageB64 string) (*providers.FaceAnalysis, error) {
	raw, err := providers.DecodeImage(imageB64)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerName, "invalid image payload", err)
	}

	out, err := c.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: raw},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		return nil, classify("face analysis failed", err)
	}

	if len(out.FaceDetails) == 0 {
		return &providers.FaceAnalysis{FaceDetected: false}, nil
	}

	// Rekognition orders faces by prominence; the first is the subject.
	fd := out.FaceDetails[0]
	analysis := &providers.FaceAnalysis{
		FaceDetected: true,
		Confidence:   float64(aws.ToFloat32(fd.Confidence)) / confidenceScale,
		Liveness:     passable(fd.Quality),
	}
	if fd.Gender != nil {
		analysis.Gender = string(fd.Gender.Value)
	}
	return analysis, nil
}

// CompareFaces compares the selfie against the document photo.
func (c *Client) CompareFaces(ctx context.Context, selfieB64, documentB64 string) (*providers.FaceMatch, error) {
	source, err := providers.DecodeImage(selfieB64)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerName, "invalid selfie payload", err)
	}
	target, err := providers.DecodeImage(documentB64)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerName, "invalid document payload", err)
	}

	out, err := c.api.CompareFaces(ctx, &rekognition.CompareFacesInput{
		SourceImage:         &types.Image{Bytes: source},
		TargetImage:         &types.Image{Bytes: target},
		SimilarityThreshold: aws.Float32(similarityThreshold),
	})
	if err != nil {
		return nil, classify("face comparison failed", err)
	}

	if len(out.FaceMatches) == 0 {
		return &providers.FaceMatch{Match: false, Confidence: 0}, nil
	}
	best := out.FaceMatches[0]
	return &providers.FaceMatch{
		Match:      true,
		Confidence: float64(aws.ToFloat32(best.Similarity)) / confidenceScale,
	}, nil
}

// Health verifies the service is reachable with the configured credentials.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.api.ListCollections(ctx, &rekognition.ListCollectionsInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return classify("health check failed", err)
	}
	return nil
}

func passable(q *types.ImageQuality) bool {
	if q == nil {
		return false
	}
	return aws.ToFloat32(q.Sharpness) >= minSharpness && aws.ToFloat32(q.Brightness) >= minBrightness
}

func classify(msg string, err error) *providers.ProviderError {
	var (
		badFormat *types.InvalidImageFormatException
		tooLarge  *types.ImageTooLargeException
		badParam  *types.InvalidParameterException
		denied    *types.AccessDeniedException
		throttled *types.ThrottlingException
		exceeded  *types.ProvisionedThroughputExceededException
		internal  *types.InternalServerError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return providers.NewProviderError(providers.ErrorTimeout, providerName, msg, err)
	case errors.As(err, &badFormat), errors.As(err, &tooLarge), errors.As(err, &badParam):
		return providers.NewProviderError(providers.ErrorBadData, providerName, msg, err)
	case errors.As(err, &denied):
		return providers.NewProviderError(providers.ErrorAuthentication, providerName, msg, err)
	case errors.As(err, &throttled), errors.As(err, &exceeded), errors.As(err, &internal):
		return providers.NewProviderError(providers.ErrorProviderOutage, providerName, msg, err)
	default:
		return providers.NewProviderError(providers.ErrorInternal, providerName, msg, err)
	}
}

var (
	_ providers.FaceAnalyzer = (*Client)(nil)
	_ providers.FaceMatcher  = (*Client)(nil)
)
