// Package storage provides document lookup and container credential issuance
// over Azure Blob Storage.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/JaimeStill/docgate/pkg/lifecycle"
)

// Object is the resolved location of a blob in the store.
type Object struct {
	URI  string
	Name string
}

// System mediates all interaction with the blob store.
type System interface {
	// Start registers a startup hook that ensures the storage container exists.
	Start(lc *lifecycle.Coordinator) error
	// Lookup resolves the blob with the given name in the configured container.
	// Returns ErrNotFound if the blob is absent or the name is empty. Transport
	// failures are logged and also reported as ErrNotFound.
	Lookup(ctx context.Context, name string) (*Object, error)
	// EnsureContainer creates the configured container if it does not exist.
	EnsureContainer(ctx context.Context) error
	// ContainerSAS ensures the container exists and returns a signed URL granting
	// access to the whole container. An empty policy signs an explicit read/write
	// window; a non-empty policy binds the token to that stored access policy.
	// Returns ErrSigningUnavailable if the client holds no shared key.
	ContainerSAS(ctx context.Context, policy string) (string, error)
	// Copy starts a server-side copy of the named blob into another container.
	Copy(ctx context.Context, name, target string) (*Object, error)
}

type azure struct {
	client     *azblob.Client
	container  *container.Client
	credential *azblob.SharedKeyCredential
	name       string
	window     time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a storage system from the given configuration.
// It validates the connection settings and creates the Azure client
// but does not contact the service until Start or an operation is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries: int32(cfg.MaxRetries),
				TryTimeout: cfg.TryTimeoutDuration(),
			},
		},
	}

	var (
		client *azblob.Client
		cred   *azblob.SharedKeyCredential
		err    error
	)

	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		cred, err = sharedKey(cfg.ConnectionString)
		if err != nil {
			return nil, err
		}
	} else {
		token, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("create azure credential: %w", err)
		}
		client, err = azblob.NewClient(cfg.ServiceURL, token, opts)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
	}

	return &azure{
		client:     client,
		container:  client.ServiceClient().NewContainerClient(cfg.ContainerName),
		credential: cred,
		name:       cfg.ContainerName,
		window:     cfg.SASWindowDuration(),
		logger:     logger.With("system", "storage"),
		now:        time.Now,
	}, nil
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting storage system", "container", a.name, "signing", a.credential != nil)

	lc.OnStartup("storage", func() error {
		if err := a.EnsureContainer(lc.Context()); err != nil {
			a.logger.Error("storage container initialization failed", "error", err)
			return err
		}

		a.logger.Info("storage container ready", "container", a.name)
		return nil
	})

	return nil
}

func (a *azure) Lookup(ctx context.Context, name string) (*Object, error) {
	if name == "" {
		return nil, ErrNotFound
	}

	blobClient := a.container.NewBlobClient(name)

	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if !bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			a.logger.Error("blob lookup failed", "name", name, "error", err)
		}
		return nil, ErrNotFound
	}

	return &Object{
		URI:  blobClient.URL(),
		Name: name,
	}, nil
}

func (a *azure) EnsureContainer(ctx context.Context) error {
	_, err := a.container.Create(ctx, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", a.name, err)
	}
	return nil
}

func (a *azure) ContainerSAS(ctx context.Context, policy string) (string, error) {
	if err := a.EnsureContainer(ctx); err != nil {
		return "", err
	}

	if a.credential == nil {
		return "", ErrSigningUnavailable
	}

	return signContainer(a.credential, a.container.URL(), a.name, policy, a.now(), a.window)
}

func (a *azure) Copy(ctx context.Context, name, target string) (*Object, error) {
	if name == "" {
		return nil, ErrEmptyKey
	}
	if target == "" {
		return nil, ErrEmptyContainer
	}

	source := a.container.NewBlobClient(name).URL()
	if a.credential != nil {
		signed, err := signBlobRead(a.credential, source, a.name, name, a.now(), a.window)
		if err != nil {
			return nil, err
		}
		source = signed
	}

	dest := a.client.ServiceClient().NewContainerClient(target).NewBlobClient(name)

	_, err := dest.StartCopyFromURL(ctx, source, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.CannotVerifyCopySource) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("copy blob %s to %s: %w", name, target, err)
	}

	return &Object{
		URI:  dest.URL(),
		Name: name,
	}, nil
}
