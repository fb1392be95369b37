package deltaker

import "deltakelse/pkg/apierrors"

var (
	// ErrIngenEndring signals that a change request would not alter
	// observable state. It is an ordinary result, not an exception: the
	// caller must not persist a change record or emit an event for it.
	ErrIngenEndring = apierrors.New(apierrors.CodeIngenEndring, "endringen har ingen effekt")

	// ErrVedtakIkkeFattet signals that the change requires an approved
	// vedtak which does not exist yet.
	ErrVedtakIkkeFattet = apierrors.New(apierrors.CodeVedtakIkkeFattet, "deltakeren har ikke et fattet vedtak")

	// ErrNotFound is returned by stores for missing records.
	ErrNotFound = apierrors.New(apierrors.CodeNotFound, "fant ikke deltaker")
)
