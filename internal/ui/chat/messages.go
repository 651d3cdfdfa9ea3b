// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/routerchat/internal/model"
)

// replyMsg carries the outcome of a send. Text is the submitted input, kept
// so it can be restored when the send was refused before any network call.
type replyMsg struct {
	Reply model.Message
	Text  string
	Err   error
}

// keyCheckedMsg reports one finished key check.
type keyCheckedMsg struct {
	ID     string
	Status model.KeyStatus
	Err    error
}

// keysCheckedMsg reports the end of a check-all run.
type keysCheckedMsg struct {
	Err error
}

// keysImportedMsg reports a bulk import from a file.
type keysImportedMsg struct {
	Count int
	Err   error
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	Chars int
	Err   error
}

// exportedMsg reports a chat export.
type exportedMsg struct {
	Path string
	Err  error
}
