package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

// sharedKey extracts the account shared key from a connection string.
// Connection strings carrying a SAS token or no AccountKey yield nil, nil.
func sharedKey(connectionString string) (*azblob.SharedKeyCredential, error) {
	var account, key string

	for part := range strings.SplitSeq(connectionString, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(name) {
		case "accountname":
			account = value
		case "accountkey":
			key = value
		}
	}

	if account == "" || key == "" {
		return nil, nil
	}

	cred, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	return cred, nil
}

// signContainer builds a container SAS URL. Without a stored access policy the
// token is valid from now for window with read and write permissions; with a
// policy the window and permissions come from the policy registered on the container.
func signContainer(cred *azblob.SharedKeyCredential, containerURL, containerName, policy string, now time.Time, window time.Duration) (string, error) {
	values := sas.BlobSignatureValues{
		ContainerName: containerName,
	}

	if policy == "" {
		start := now.UTC()
		values.StartTime = start
		values.ExpiryTime = start.Add(window)
		values.Permissions = (&sas.ContainerPermissions{Read: true, Write: true}).String()
	} else {
		values.Identifier = policy
	}

	qp, err := values.SignWithSharedKey(cred)
	if err != nil {
		return "", fmt.Errorf("sign container sas: %w", err)
	}

	return containerURL + "?" + qp.Encode(), nil
}

func signBlobRead(cred *azblob.SharedKeyCredential, blobURL, containerName, blobName string, now time.Time, window time.Duration) (string, error) {
	start := now.UTC()
	qp, err := sas.BlobSignatureValues{
		ContainerName: containerName,
		BlobName:      blobName,
		StartTime:     start,
		ExpiryTime:    start.Add(window),
		Permissions:   (&sas.BlobPermissions{Read: true}).String(),
	}.SignWithSharedKey(cred)
	if err != nil {
		return "", fmt.Errorf("sign blob sas: %w", err)
	}

	return blobURL + "?" + qp.Encode(), nil
}
