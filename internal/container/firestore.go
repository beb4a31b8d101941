package container

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/testcontainers/testcontainers-go/modules/gcloud"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// FirestoreProjectID is the Google Cloud project used by the Firestore emulator.
const FirestoreProjectID = "replay-test"

// Firestore returns an handle on a Firestore emulator container
// started through testcontainers.
type Firestore struct {
	*gcloud.GCloudContainer

	Client *firestore.Client
}

// The emulator accepts any bearer token, but rejects unauthenticated requests.
type emulatorCredentials struct{}

func (emulatorCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer owner"}, nil
}

func (emulatorCredentials) RequireTransportSecurity() bool { return false }

// NewFirestore creates and starts a new Firestore emulator container
// using testcontainers, and connects a Firestore client to it.
//
// Close the returned Client before terminating the container.
func NewFirestore(ctx context.Context) (*Firestore, error) {
	withContext := func(msg string, err error) error {
		return fmt.Errorf("container.NewFirestore: %s, %w", msg, err)
	}

	container, err := gcloud.RunFirestore(
		ctx,
		"gcr.io/google.com/cloudsdktool/cloud-sdk:367.0.0-emulators",
		gcloud.WithProjectID(FirestoreProjectID),
	)
	if err != nil {
		return nil, withContext("failed to run new container", err)
	}

	conn, err := grpc.NewClient(
		container.URI,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(emulatorCredentials{}),
	)
	if err != nil {
		return nil, withContext("failed to dial emulator", err)
	}

	client, err := firestore.NewClient(ctx, FirestoreProjectID, option.WithGRPCConn(conn))
	if err != nil {
		return nil, withContext("failed to create firestore client", err)
	}

	return &Firestore{
		GCloudContainer: container,
		Client:          client,
	}, nil
}
