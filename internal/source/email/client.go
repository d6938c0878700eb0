package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailmigrate/internal/model"
	"github.com/nhle/mailmigrate/internal/source"
)

// progressEvery controls how often fetch progress is logged.
const progressEvery = 500

// IMAPClient wraps go-imap v2 for reading the most recent messages of a
// mailbox. It implements source.FetchSource.
type IMAPClient struct {
	cfg    Config
	logger *log.Logger
}

var _ source.FetchSource = (*IMAPClient)(nil)

// NewIMAPClient creates a new IMAP fetch source.
func NewIMAPClient(cfg Config, logger *log.Logger) *IMAPClient {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAPClient{cfg: cfg, logger: logger}
}

// Connect dials the IMAP server, authenticates, and returns the
// connected client together with a release func that logs out. The
// connection is closed as soon as ctx ends, which unblocks the
// greeting, login and any later command.
func (c *IMAPClient) Connect(
	ctx context.Context,
) (*imapclient.Client, func(), error) {
	addr := net.JoinHostPort(c.cfg.Host, c.cfg.Port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	// go-imap commands are not context-aware.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	opts := &imapclient.Options{
		TLSConfig: &tls.Config{ServerName: c.cfg.Host},
	}

	var client *imapclient.Client
	if c.cfg.TLS {
		client = imapclient.New(tls.Client(conn, opts.TLSConfig), opts)
	} else {
		client, err = imapclient.NewStartTLS(conn, opts)
		if err != nil {
			stop()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, ctxOr(ctx, err))
		}
	}

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		stop()
		_ = client.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("logging in to IMAP %s: %w", addr, ctxErr)
		}
		return nil, nil, &source.AuthError{
			Username: c.cfg.Username,
			Message:  fmt.Sprintf("login rejected: %v", err),
		}
	}

	release := func() {
		stop()
		select {
		case <-client.Closed():
		default:
			if ctx.Err() == nil {
				_ = client.Logout().Wait()
			}
		}
		_ = client.Close()
	}
	return client, release, nil
}

// ctxOr prefers the context error once ctx has ended, since the
// connection error is then only a side effect of closing it.
func ctxOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// Check connects, authenticates and selects the configured mailbox.
func (c *IMAPClient) Check(ctx context.Context) (*MailboxInfo, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	client, release, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := client.Select(c.cfg.Mailbox, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", c.cfg.Mailbox, ctxOr(ctx, err))
	}

	return &MailboxInfo{
		Username: c.cfg.Username,
		Mailbox:  c.cfg.Mailbox,
		Messages: data.NumMessages,
	}, nil
}

// Fetch returns up to limit of the newest messages in the mailbox, in
// ascending sequence order. If the deadline passes or the connection
// drops mid-fetch, the messages collected so far are returned along
// with the error.
func (c *IMAPClient) Fetch(
	ctx context.Context, limit int,
) ([]model.RawMessage, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	client, release, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := client.Select(c.cfg.Mailbox, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", c.cfg.Mailbox, ctxOr(ctx, err))
	}

	total := data.NumMessages
	c.logger.Info("Mailbox selected", "mailbox", c.cfg.Mailbox, "total", total)

	start, end, ok := fetchWindow(total, limit)
	if !ok {
		return nil, nil
	}
	c.logger.Info("Fetching messages", "from", start, "to", end, "count", end-start+1)

	var seqSet imap.SeqSet
	seqSet.AddRange(start, end)

	headerSection := &imap.FetchItemBodySection{
		Specifier:    imap.PartSpecifierHeader,
		HeaderFields: headerFields,
		Peek:         true,
	}
	textSection := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierText,
		Peek:      true,
	}
	if c.cfg.BodyBytes > 0 {
		textSection.Partial = &imap.SectionPartial{Offset: 0, Size: c.cfg.BodyBytes}
	}

	fetchOpts := &imap.FetchOptions{
		Flags:       true,
		BodySection: []*imap.FetchItemBodySection{headerSection, textSection},
	}

	fetchCmd := client.Fetch(seqSet, fetchOpts)
	defer fetchCmd.Close()

	messages := make([]model.RawMessage, 0, end-start+1)
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			c.logger.Warn("Skipping message", "seq", msg.SeqNum, "error", err)
			continue
		}

		messages = append(messages, rawFromBuffer(buf, headerSection, textSection))
		if len(messages)%progressEvery == 0 {
			c.logger.Info("Fetch progress", "fetched", len(messages), "of", end-start+1)
		}
	}

	if err := fetchCmd.Close(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	c.logger.Info("Fetched messages", "count", len(messages))
	return messages, nil
}

// fetchWindow returns the sequence range holding the newest limit
// messages out of total. ok is false when there is nothing to fetch.
func fetchWindow(total uint32, limit int) (start, end uint32, ok bool) {
	if total == 0 || limit <= 0 {
		return 0, 0, false
	}
	count := total
	if uint64(limit) < uint64(total) {
		count = uint32(limit)
	}
	return total - count + 1, total, true
}

// rawFromBuffer converts a fetched message into a RawMessage.
func rawFromBuffer(
	buf *imapclient.FetchMessageBuffer,
	headerSection, textSection *imap.FetchItemBodySection,
) model.RawMessage {
	head := buf.FindBodySection(headerSection)
	text := buf.FindBodySection(textSection)

	seen := false
	for _, flag := range buf.Flags {
		if flag == imap.FlagSeen {
			seen = true
			break
		}
	}

	return model.RawMessage{
		ID:     strconv.FormatUint(uint64(buf.SeqNum), 10),
		Header: string(head),
		Body:   decodeBody(head, text),
		Seen:   seen,
	}
}
