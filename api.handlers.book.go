package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// maxBookBodyBytes bounds the size of a book creation or update body.
const maxBookBodyBytes = 64 << 10

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(
		map[string]interface{}{
			"requestid": requestID,
			"status":    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
			"message":   "Hello. Books store api is available. Enjoy :)",
		},
	); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send status response", zap.Error(err))
	}
}

// ListBooks godoc
//
//	@Summary		List books
//	@Description	Returns the stored books ordered by id.
//	@Tags			books
//	@Produce		json
//	@Param			skip	query		int	false	"number of books to skip"
//	@Param			limit	query		int	false	"maximum number of books to return"
//	@Success		200		{array}		Book
//	@Failure		422		{object}	ErrorDetail
//	@Failure		500		{object}	ErrorDetail
//	@Router			/ [get]
func (api *APIHandler) ListBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	page, violations := ParsePage(r)
	if len(violations) != 0 {
		logger.Error("failed to list books: invalid query", zap.Any("violations", violations))
		api.sendError(w, r, http.StatusUnprocessableEntity, violations)
		return
	}

	books, err := api.bookService.List(r.Context(), page)
	if err != nil {
		logger.Error("failed to list books", zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	logger.Info("success to list books", zap.Int("books.total", len(books)))
	if err = WriteResponse(r.Context(), w, http.StatusOK, books); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// CreateBook godoc
//
//	@Summary		Create a book
//	@Description	Stores a new book. The response echoes the payload, the new id is in the Location header.
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			book	body		BookPayload	true	"book to create"
//	@Success		200		{object}	BookPayload
//	@Header			200		{string}	Location	"path of the created book"
//	@Failure		413		{object}	ErrorDetail
//	@Failure		422		{object}	ErrorDetail
//	@Failure		500		{object}	ErrorDetail
//	@Router			/ [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	payload, violations, err := api.checkBookBody(w, r)
	if err != nil {
		logger.Error("failed to create book: unreadable body", zap.Error(err))
		api.sendBodyError(w, r, err)
		return
	}
	if len(violations) != 0 {
		logger.Error("failed to create book: invalid payload", zap.Any("violations", violations))
		api.sendError(w, r, http.StatusUnprocessableEntity, violations)
		return
	}

	book, err := api.bookService.Create(r.Context(), payload.Book())
	if err != nil {
		logger.Error("failed to create book", zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	logger.Info("success to create book", zap.Int64("book.id", book.ID))
	w.Header().Set("Location", fmt.Sprintf("/%d", book.ID))
	if err = WriteResponse(r.Context(), w, http.StatusOK, payload); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// UpdateBook godoc
//
//	@Summary		Update a book
//	@Description	Overwrites all fields of an existing book.
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int			true	"book id"
//	@Param			book	body		BookPayload	true	"new book values"
//	@Success		200		{object}	Book
//	@Failure		404		{object}	ErrorDetail
//	@Failure		413		{object}	ErrorDetail
//	@Failure		422		{object}	ErrorDetail
//	@Failure		500		{object}	ErrorDetail
//	@Router			/{id} [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("failed to update book: invalid id", zap.String("book.id", ps.ByName("id")))
		api.sendError(w, r, http.StatusUnprocessableEntity, []Violation{IntegerViolation("path", "id")})
		return
	}

	payload, violations, err := api.checkBookBody(w, r)
	if err != nil {
		logger.Error("failed to update book: unreadable body", zap.Int64("book.id", id), zap.Error(err))
		api.sendBodyError(w, r, err)
		return
	}
	if len(violations) != 0 {
		logger.Error("failed to update book: invalid payload", zap.Int64("book.id", id), zap.Any("violations", violations))
		api.sendError(w, r, http.StatusUnprocessableEntity, violations)
		return
	}

	book, err := api.bookService.Update(r.Context(), id, payload.Book())
	var notFound *BookNotFoundError
	if errors.As(err, &notFound) {
		logger.Error("book does not exist", zap.Int64("book.id", id))
		api.sendError(w, r, http.StatusNotFound, notFound.Error())
		return
	}
	if err != nil {
		logger.Error("failed to update book", zap.Int64("book.id", id), zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	logger.Info("success to update book", zap.Int64("book.id", id))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// DeleteBook godoc
//
//	@Summary		Delete a book
//	@Description	Removes an existing book and returns its last values.
//	@Tags			books
//	@Produce		json
//	@Param			id	path		int	true	"book id"
//	@Success		200	{object}	Book
//	@Failure		404	{object}	ErrorDetail
//	@Failure		422	{object}	ErrorDetail
//	@Failure		500	{object}	ErrorDetail
//	@Router			/{id} [delete]
func (api *APIHandler) DeleteBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		logger.Error("failed to delete book: invalid id", zap.String("book.id", ps.ByName("id")))
		api.sendError(w, r, http.StatusUnprocessableEntity, []Violation{IntegerViolation("path", "id")})
		return
	}

	book, err := api.bookService.Delete(r.Context(), id)
	var notFound *BookNotFoundError
	if errors.As(err, &notFound) {
		logger.Error("book does not exist", zap.Int64("book.id", id))
		api.sendError(w, r, http.StatusNotFound, notFound.Error())
		return
	}
	if err != nil {
		logger.Error("failed to delete book", zap.Int64("book.id", id), zap.Error(err))
		api.sendError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	logger.Info("success to delete book", zap.Int64("book.id", id))
	if err = WriteResponse(r.Context(), w, http.StatusOK, book); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// sendError writes an error body holding detail with the given status.
func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, status int, detail interface{}) {
	if err := WriteErrorResponse(r.Context(), w, status, NewErrorDetail(detail)); err != nil {
		api.GetLoggerFromContext(r.Context()).Error("failed to send error response", zap.Error(err))
	}
}

// checkBookBody reads at most maxBookBodyBytes of the request body then
// decodes and validates it as a book payload.
func (api *APIHandler) checkBookBody(w http.ResponseWriter, r *http.Request) (BookPayload, []Violation, error) {
	body := r.Body
	if body == nil {
		body = http.NoBody
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, body, maxBookBodyBytes))
	if err != nil {
		return BookPayload{}, nil, err
	}
	payload, violations := api.validator.Check(bytes.NewReader(data))
	return payload, violations, nil
}

func (api *APIHandler) sendBodyError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	api.sendError(w, r, status, http.StatusText(status))
}
