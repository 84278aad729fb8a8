// Package textract implements document extraction on top of AWS Textract.
//
// Brazilian RG cards are not covered by Textract's identity-document model,
// so extraction runs AnalyzeDocument with the Queries feature and a fixed set
// of field queries instead of AnalyzeID.
package textract

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"verifid/internal/providers"
)

const providerName = "textract"

// Query aliases keyed into the extraction result.
const (
	aliasName         = "NAME"
	aliasRGNumber     = "RG_NUMBER"
	aliasBirthDate    = "BIRTH_DATE"
	aliasGender       = "GENDER"
	aliasIssuingOrgan = "ISSUING_ORGAN"
	aliasDocumentType = "DOCUMENT_TYPE"
)

var fieldQueries = []types.Query{
	{Text: aws.String("What is the person's full name?"), Alias: aws.String(aliasName)},
	{Text: aws.String("What is the RG number (registro geral)?"), Alias: aws.String(aliasRGNumber)},
	{Text: aws.String("What is the date of birth?"), Alias: aws.String(aliasBirthDate)},
	{Text: aws.String("What is the sex or gender?"), Alias: aws.String(aliasGender)},
	{Text: aws.String("What is the issuing organ or authority?"), Alias: aws.String(aliasIssuingOrgan)},
	{Text: aws.String("What type of document is this?"), Alias: aws.String(aliasDocumentType)},
}

// api is the subset of the Textract client the adapter calls.
type api interface {
	AnalyzeDocument(ctx context.Context, in *textract.AnalyzeDocumentInput, opts ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

// Client adapts AWS Textract to the DocumentExtractor capability.
type Client struct {
	api       api
	creds     aws.CredentialsProvider
	facecheck providers.FaceAnalyzer
}

// Option configures the client.
type Option func(*Client)

// WithFacePresenceCheck wires a face analyzer used to confirm the document
// carries a photo. Without it, a successfully parsed document is assumed to.
func WithFacePresenceCheck(fa providers.FaceAnalyzer) Option {
	return func(c *Client) { c.facecheck = fa }
}

// New builds a client using the default AWS credential chain.
func New(ctx context.Context, region string, opts ...Option) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	c := &Client{api: textract.NewFromConfig(cfg), creds: cfg.Credentials}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromAPI builds a client over an existing API surface. Used by tests.
func NewFromAPI(a api, opts ...Option) *Client {
	c := &Client{api: a}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExtractDocument runs the field queries over the document image and maps the
// answers onto the normalized document data.
func (c *Client) ExtractDocument(ctx context.Context, imageB64 string) (*providers.DocumentData, error) {
	raw, err := providers.DecodeImage(imageB64)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerName, "invalid document payload", err)
	}

	out, err := c.api.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:      &types.Document{Bytes: raw},
		FeatureTypes:  []types.FeatureType{types.FeatureTypeQueries},
		QueriesConfig: &types.QueriesConfig{Queries: fieldQueries},
	})
	if err != nil {
		return nil, classify("document extraction failed", err)
	}

	answers := queryAnswers(out.Blocks)
	fields := providers.DocumentFields{
		Name:         answers[aliasName],
		RGNumber:     answers[aliasRGNumber],
		BirthDate:    answers[aliasBirthDate],
		Gender:       answers[aliasGender],
		IssuingOrgan: answers[aliasIssuingOrgan],
		DocumentType: answers[aliasDocumentType],
	}

	// Textract does not assess authenticity. A document that yields the two
	// identifying fields is accepted as genuine; forgery detection belongs to
	// a specialist vendor.
	data := &providers.DocumentData{
		Authentic: fields.Name != "" && fields.RGNumber != "",
		Fields:    fields,
	}

	if c.facecheck != nil {
		fa, err := c.facecheck.AnalyzeFace(ctx, imageB64)
		if err != nil {
			return nil, err
		}
		data.FaceInDocument = fa.FaceDetected
	} else {
		data.FaceInDocument = data.Authentic
	}
	return data, nil
}

// Health verifies the configured credentials resolve. Textract has no
// inexpensive probe operation.
func (c *Client) Health(ctx context.Context) error {
	if c.creds == nil {
		return nil
	}
	if _, err := c.creds.Retrieve(ctx); err != nil {
		return providers.NewProviderError(providers.ErrorAuthentication, providerName, "credential resolution failed", err)
	}
	return nil
}

// queryAnswers resolves QUERY blocks to their QUERY_RESULT text via the
// ANSWER relationship, keyed by query alias.
func queryAnswers(blocks []types.Block) map[string]string {
	byID := make(map[string]types.Block, len(blocks))
	for _, b := range blocks {
		byID[aws.ToString(b.Id)] = b
	}

	answers := make(map[string]string)
	for _, b := range blocks {
		if b.BlockType != types.BlockTypeQuery || b.Query == nil {
			continue
		}
		alias := aws.ToString(b.Query.Alias)
		if alias == "" {
			continue
		}
		for _, rel := range b.Relationships {
			if rel.Type != types.RelationshipTypeAnswer {
				continue
			}
			for _, id := range rel.Ids {
				if res, ok := byID[id]; ok && res.BlockType == types.BlockTypeQueryResult {
					answers[alias] = aws.ToString(res.Text)
				}
			}
		}
	}
	return answers
}

func classify(msg string, err error) *providers.ProviderError {
	var (
		unsupported *types.UnsupportedDocumentException
		badDoc      *types.BadDocumentException
		tooLarge    *types.DocumentTooLargeException
		badParam    *types.InvalidParameterException
		denied      *types.AccessDeniedException
		throttled   *types.ThrottlingException
		exceeded    *types.ProvisionedThroughputExceededException
		internal    *types.InternalServerError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return providers.NewProviderError(providers.ErrorTimeout, providerName, msg, err)
	case errors.As(err, &unsupported), errors.As(err, &badDoc), errors.As(err, &tooLarge), errors.As(err, &badParam):
		return providers.NewProviderError(providers.ErrorBadData, providerName, msg, err)
	case errors.As(err, &denied):
		return providers.NewProviderError(providers.ErrorAuthentication, providerName, msg, err)
	case errors.As(err, &throttled), errors.As(err, &exceeded), errors.As(err, &internal):
		return providers.NewProviderError(providers.ErrorProviderOutage, providerName, msg, err)
	default:
		return providers.NewProviderError(providers.ErrorInternal, providerName, msg, err)
	}
}

var _ providers.DocumentExtractor = (*Client)(nil)
