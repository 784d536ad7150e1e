package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bscott/mailsync/internal/imap"
	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/model"
)

// Op names a per-message state change.
type Op string

const (
	OpRead      Op = "read"
	OpStarred   Op = "starred"
	OpImportant Op = "important"
	OpDelete    Op = "delete"
	OpMove      Op = "move"
)

// ParseOp accepts the op names used on the wire.
func ParseOp(name string) (Op, error) {
	switch op := Op(name); op {
	case OpRead, OpStarred, OpImportant, OpDelete, OpMove:
		return op, nil
	}
	return "", mailerr.Errorf(mailerr.Mutation, "mutate", "unknown operation %q", name)
}

// MutateArgs carries the operands an op needs. Value is the new flag state
// for read, starred and important; Destination is the target of a move.
type MutateArgs struct {
	Value       bool
	Destination string
}

// Mutate applies op to the message at ref under the folder lock.
func (s *Service) Mutate(ctx context.Context, creds model.Credentials, op Op, ref model.MessageRef, args MutateArgs) error {
	name := fmt.Sprintf("%s uid %d", op, ref.UID)

	var apply func(*imap.Mailbox) error
	switch op {
	case OpRead:
		apply = func(mb *imap.Mailbox) error { return mb.SetRead(ref.UID, args.Value) }
	case OpStarred:
		apply = func(mb *imap.Mailbox) error { return mb.SetStarred(ref.UID, args.Value) }
	case OpImportant:
		apply = func(mb *imap.Mailbox) error { return mb.SetImportant(ref.UID, args.Value) }
	case OpDelete:
		apply = func(mb *imap.Mailbox) error { return mb.Delete(ref.UID) }
	case OpMove:
		if args.Destination == "" {
			return mailerr.Errorf(mailerr.Mutation, name, "destination folder required")
		}
		apply = func(mb *imap.Mailbox) error { return mb.Move(ref.UID, args.Destination) }
	default:
		return mailerr.Errorf(mailerr.Mutation, name, "unknown operation")
	}

	err := s.dialer.WithSession(ctx, creds, func(sess *imap.Session) error {
		return sess.WithLock(ctx, ref.Folder, apply)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"op":     string(op),
		"folder": ref.Folder,
		"uid":    ref.UID,
	}).Info("message updated")
	return nil
}

func (s *Service) SetRead(ctx context.Context, creds model.Credentials, ref model.MessageRef, read bool) error {
	return s.Mutate(ctx, creds, OpRead, ref, MutateArgs{Value: read})
}

func (s *Service) SetStarred(ctx context.Context, creds model.Credentials, ref model.MessageRef, starred bool) error {
	return s.Mutate(ctx, creds, OpStarred, ref, MutateArgs{Value: starred})
}

func (s *Service) SetImportant(ctx context.Context, creds model.Credentials, ref model.MessageRef, important bool) error {
	return s.Mutate(ctx, creds, OpImportant, ref, MutateArgs{Value: important})
}

func (s *Service) Delete(ctx context.Context, creds model.Credentials, ref model.MessageRef) error {
	return s.Mutate(ctx, creds, OpDelete, ref, MutateArgs{})
}

// Move relocates the message; its UID in dest is not the UID in ref.
func (s *Service) Move(ctx context.Context, creds model.Credentials, ref model.MessageRef, dest string) error {
	return s.Mutate(ctx, creds, OpMove, ref, MutateArgs{Destination: dest})
}
