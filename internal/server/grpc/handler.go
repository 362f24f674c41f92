package grpc

import (
	"context"
	"errors"
	"math"

	"github.com/dmitrijs2005/encrypter/internal/models"
	"github.com/dmitrijs2005/encrypter/internal/vault"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var kindCodes = map[vault.Kind]codes.Code{
	vault.KindAuthUnavailable: codes.FailedPrecondition,
	vault.KindAuthCancelled:   codes.Canceled,
	vault.KindKeyInvalidated:  codes.PermissionDenied,
	vault.KindKeyStore:        codes.Internal,
	vault.KindIntegrity:       codes.DataLoss,
	vault.KindIO:              codes.Unavailable,
	vault.KindNotFound:        codes.NotFound,
}

func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var ve *vault.Error
	if !errors.As(err, &ve) {
		s.logger.Error(ctx, err.Error())
		return status.Error(codes.Internal, "internal error")
	}

	code, ok := kindCodes[ve.Kind]
	if !ok {
		code = codes.Internal
	}
	return status.Error(code, ve.Message())
}

func recordToStruct(r *models.FileRecord) (*structpb.Struct, error) {
	return structpb.NewStruct(recordFields(r))
}

func recordFields(r *models.FileRecord) map[string]any {
	return map[string]any{
		"id":             r.ID,
		"name":           r.DisplayName,
		"mime":           r.MimeType,
		"kind":           string(r.Kind()),
		"locator":        r.Locator,
		"size":           r.Size,
		"formatted_size": r.FormattedSize(),
		"encrypted":      r.Encrypted,
	}
}

func stringField(in *structpb.Struct, name string) (string, error) {
	v, ok := in.GetFields()[name]
	if !ok || v.GetStringValue() == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return v.GetStringValue(), nil
}

func idField(in *structpb.Struct) (int64, error) {
	v, ok := in.GetFields()["id"]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "id is required")
	}
	f := v.GetNumberValue()
	if f < 1 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, status.Error(codes.InvalidArgument, "id must be a positive integer")
	}
	return int64(f), nil
}

func (s *GRPCServer) Encrypt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	source, err := stringField(in, "source")
	if err != nil {
		return nil, err
	}

	res := <-s.vault.EncryptAsync(ctx, source)
	if res.Err != nil {
		return nil, s.toStatus(ctx, res.Err)
	}

	s.logger.Info(ctx, "Encrypted", "id", res.Record.ID)
	return recordToStruct(res.Record)
}

func (s *GRPCServer) Decrypt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(in)
	if err != nil {
		return nil, err
	}
	destination, err := stringField(in, "destination")
	if err != nil {
		return nil, err
	}

	rec, err := s.vault.GetFile(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	res := <-s.vault.DecryptAsync(ctx, rec, destination)
	if res.Err != nil {
		return nil, s.toStatus(ctx, res.Err)
	}
	return recordToStruct(res.Record)
}

func (s *GRPCServer) List(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	recs, err := s.vault.ListFiles(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	files := make([]any, 0, len(recs))
	for _, r := range recs {
		files = append(files, recordFields(r))
	}
	return structpb.NewStruct(map[string]any{"files": files})
}

func (s *GRPCServer) Get(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(in)
	if err != nil {
		return nil, err
	}

	rec, err := s.vault.GetFile(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return recordToStruct(rec)
}

func (s *GRPCServer) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := idField(in)
	if err != nil {
		return nil, err
	}

	ok, err := s.vault.DeleteFile(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{"deleted": ok})
}
