package imap

import (
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/message"
)

// FlagImportant is the keyword used for the important marker.
const FlagImportant = imap.Flag(message.FlagImportant)

func (m *Mailbox) SetRead(uid uint32, read bool) error {
	return m.setFlag("setRead", uid, imap.FlagSeen, read)
}

func (m *Mailbox) SetStarred(uid uint32, starred bool) error {
	return m.setFlag("setStarred", uid, imap.FlagFlagged, starred)
}

func (m *Mailbox) SetImportant(uid uint32, important bool) error {
	return m.setFlag("setImportant", uid, FlagImportant, important)
}

func (m *Mailbox) setFlag(op string, uid uint32, flag imap.Flag, on bool) error {
	storeOp := imap.StoreFlagsAdd
	if !on {
		storeOp = imap.StoreFlagsDel
	}
	if err := m.store(uid, storeOp, flag); err != nil {
		return mailerr.New(mailerr.Mutation, fmt.Sprintf("%s uid %d", op, uid), err)
	}
	m.s.log.WithField("uid", uid).WithField("flag", string(flag)).WithField("on", on).Debug(op)
	return nil
}

func (m *Mailbox) store(uid uint32, op imap.StoreFlagsOp, flags ...imap.Flag) error {
	if m.readOnly {
		return fmt.Errorf("mailbox %s is read-only", m.name)
	}
	cmd := m.s.client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  flags,
	}, nil)
	return cmd.Close()
}

// Delete marks the message deleted and then purges it. With UIDPLUS only
// this UID is expunged; otherwise every message marked deleted in the
// folder goes with it.
func (m *Mailbox) Delete(uid uint32) error {
	op := fmt.Sprintf("delete uid %d", uid)
	if err := m.store(uid, imap.StoreFlagsAdd, imap.FlagDeleted); err != nil {
		return mailerr.New(mailerr.Mutation, op, err)
	}

	var expunge *imapclient.ExpungeCommand
	if m.s.client.Caps().Has(imap.CapUIDPlus) {
		expunge = m.s.client.UIDExpunge(imap.UIDSetNum(imap.UID(uid)))
	} else {
		expunge = m.s.client.Expunge()
	}
	if err := expunge.Close(); err != nil {
		return mailerr.New(mailerr.Mutation, op, err)
	}

	m.s.log.WithField("uid", uid).WithField("folder", m.name).Debug("message deleted")
	return nil
}

// Move relocates the message to dest. The UID changes in dest.
func (m *Mailbox) Move(uid uint32, dest string) error {
	op := fmt.Sprintf("move uid %d to %s", uid, dest)
	if m.readOnly {
		return mailerr.Errorf(mailerr.Mutation, op, "mailbox %s is read-only", m.name)
	}
	if _, err := m.s.client.Move(imap.UIDSetNum(imap.UID(uid)), dest).Wait(); err != nil {
		return mailerr.New(mailerr.Mutation, op, err)
	}
	m.s.log.WithField("uid", uid).WithField("from", m.name).WithField("to", dest).Debug("message moved")
	return nil
}
