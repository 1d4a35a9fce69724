package uploader

import "uploadq/internal/model"

// Hooks receives queue lifecycle notifications.
//
// The filters BeforeFileProcessing and AfterFileProcessing run synchronously
// on the goroutine calling AddFiles and may modify the record; returning false
// discards the file. Setting the record's status to anything other than
// pending in BeforeFileProcessing also discards it.
//
// All other hooks receive copies and are delivered one at a time, in the order
// the underlying state changes happened. They may call back into the Uploader
// but must not call Wait.
type Hooks interface {
	BeforeFileProcessing(rec *model.FileRecord) bool
	AfterFileProcessing(rec *model.FileRecord) bool

	OnStartProcessing()
	OnEndProcessing()
	OnFileAdded(rec model.FileRecord)

	OnStart()
	OnFileStart(rec model.FileRecord)
	OnProgress(rec model.FileRecord)
	OnFileUploaded(rec model.FileRecord)
	OnUploadError(rec model.FileRecord)
	OnEnd()
}

// NopHooks accepts every file and ignores all notifications. Embed it to
// implement only some hooks.
type NopHooks struct{}

func (NopHooks) BeforeFileProcessing(*model.FileRecord) bool { return true }
func (NopHooks) AfterFileProcessing(*model.FileRecord) bool  { return true }
func (NopHooks) OnStartProcessing()                          {}
func (NopHooks) OnEndProcessing()                            {}
func (NopHooks) OnFileAdded(model.FileRecord)                {}
func (NopHooks) OnStart()                                    {}
func (NopHooks) OnFileStart(model.FileRecord)                {}
func (NopHooks) OnProgress(model.FileRecord)                 {}
func (NopHooks) OnFileUploaded(model.FileRecord)             {}
func (NopHooks) OnUploadError(model.FileRecord)              {}
func (NopHooks) OnEnd()                                      {}

// HookFuncs adapts plain functions to Hooks. Nil fields are no-ops, nil
// filters accept.
type HookFuncs struct {
	BeforeFileProcessingFunc func(rec *model.FileRecord) bool
	AfterFileProcessingFunc  func(rec *model.FileRecord) bool
	OnStartProcessingFunc    func()
	OnEndProcessingFunc      func()
	OnFileAddedFunc          func(rec model.FileRecord)
	OnStartFunc              func()
	OnFileStartFunc          func(rec model.FileRecord)
	OnProgressFunc           func(rec model.FileRecord)
	OnFileUploadedFunc       func(rec model.FileRecord)
	OnUploadErrorFunc        func(rec model.FileRecord)
	OnEndFunc                func()
}

var _ Hooks = HookFuncs{}

func (h HookFuncs) BeforeFileProcessing(rec *model.FileRecord) bool {
	return h.BeforeFileProcessingFunc == nil || h.BeforeFileProcessingFunc(rec)
}

func (h HookFuncs) AfterFileProcessing(rec *model.FileRecord) bool {
	return h.AfterFileProcessingFunc == nil || h.AfterFileProcessingFunc(rec)
}

func (h HookFuncs) OnStartProcessing() {
	if h.OnStartProcessingFunc != nil {
		h.OnStartProcessingFunc()
	}
}

func (h HookFuncs) OnEndProcessing() {
	if h.OnEndProcessingFunc != nil {
		h.OnEndProcessingFunc()
	}
}

func (h HookFuncs) OnFileAdded(rec model.FileRecord) {
	if h.OnFileAddedFunc != nil {
		h.OnFileAddedFunc(rec)
	}
}

func (h HookFuncs) OnStart() {
	if h.OnStartFunc != nil {
		h.OnStartFunc()
	}
}

func (h HookFuncs) OnFileStart(rec model.FileRecord) {
	if h.OnFileStartFunc != nil {
		h.OnFileStartFunc(rec)
	}
}

func (h HookFuncs) OnProgress(rec model.FileRecord) {
	if h.OnProgressFunc != nil {
		h.OnProgressFunc(rec)
	}
}

func (h HookFuncs) OnFileUploaded(rec model.FileRecord) {
	if h.OnFileUploadedFunc != nil {
		h.OnFileUploadedFunc(rec)
	}
}

func (h HookFuncs) OnUploadError(rec model.FileRecord) {
	if h.OnUploadErrorFunc != nil {
		h.OnUploadErrorFunc(rec)
	}
}

func (h HookFuncs) OnEnd() {
	if h.OnEndFunc != nil {
		h.OnEndFunc()
	}
}
