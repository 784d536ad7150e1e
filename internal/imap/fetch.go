package imap

import (
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/bscott/mailsync/internal/mailerr"
	"github.com/bscott/mailsync/internal/message"
)

var wholeMessage = &imap.FetchItemBodySection{Peek: true}

func fetchOptions() *imap.FetchOptions {
	return &imap.FetchOptions{
		UID:          true,
		Flags:        true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{wholeMessage},
	}
}

// FetchRange streams every message in r in ascending sequence order. A
// message whose data cannot be collected is handed to skip and not to fn.
func (m *Mailbox) FetchRange(r Range, fn func(raw []byte, meta message.Meta) error, skip func(seq uint32, err error)) error {
	var seqSet imap.SeqSet
	seqSet.AddRange(r.Start, r.End)

	fetchCmd := m.s.client.Fetch(seqSet, fetchOptions())
	defer fetchCmd.Close()

	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		seq := msg.SeqNum

		buf, err := msg.Collect()
		if err != nil {
			if skip != nil {
				skip(seq, err)
			}
			continue
		}
		if err := fn(buf.FindBodySection(wholeMessage), metaFromBuffer(buf)); err != nil {
			return err
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return mailerr.New(mailerr.Connection, fmt.Sprintf("fetch %s %d:%d", m.name, r.Start, r.End), err)
	}
	return nil
}

// FetchUID fetches one message by UID without marking it seen.
func (m *Mailbox) FetchUID(uid uint32) ([]byte, message.Meta, error) {
	fetchCmd := m.s.client.Fetch(imap.UIDSetNum(imap.UID(uid)), fetchOptions())
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		if err := fetchCmd.Close(); err != nil {
			return nil, message.Meta{}, mailerr.New(mailerr.Connection, "fetch", err)
		}
		return nil, message.Meta{}, mailerr.New(mailerr.Index, fmt.Sprintf("fetch uid %d", uid), mailerr.ErrMessageNotFound)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, message.Meta{}, mailerr.New(mailerr.Parse, fmt.Sprintf("fetch uid %d", uid), err)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, message.Meta{}, mailerr.New(mailerr.Connection, "fetch", err)
	}

	raw := buf.FindBodySection(wholeMessage)
	if raw == nil {
		return nil, message.Meta{}, mailerr.Errorf(mailerr.Parse, fmt.Sprintf("fetch uid %d", uid), "server returned no body")
	}
	return raw, metaFromBuffer(buf), nil
}

// UIDs lists the UIDs present in the folder in sequence order.
func (m *Mailbox) UIDs() ([]uint32, error) {
	if m.total == 0 {
		return nil, nil
	}
	var seqSet imap.SeqSet
	seqSet.AddRange(1, m.total)

	msgs, err := m.s.client.Fetch(seqSet, &imap.FetchOptions{UID: true}).Collect()
	if err != nil {
		return nil, mailerr.New(mailerr.Connection, "fetch uids "+m.name, err)
	}
	uids := make([]uint32, 0, len(msgs))
	for _, msg := range msgs {
		uids = append(uids, uint32(msg.UID))
	}
	return uids, nil
}

func metaFromBuffer(buf *imapclient.FetchMessageBuffer) message.Meta {
	flags := make([]string, len(buf.Flags))
	for i, f := range buf.Flags {
		flags[i] = string(f)
	}
	date := buf.InternalDate
	if date.IsZero() {
		date = time.Now()
	}
	return message.Meta{
		UID:          uint32(buf.UID),
		SeqNum:       buf.SeqNum,
		Flags:        flags,
		InternalDate: date,
	}
}
