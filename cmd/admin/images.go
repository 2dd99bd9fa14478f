package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campus-cms/internal/cms"
	"campus-cms/internal/form"
	"campus-cms/internal/schema"
)

func (app *adminApplication) listImagesHandler(w http.ResponseWriter, r *http.Request) {
	images, err := app.cms.ListImages()
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, images)
}

// uploadImageHandler stores the multipart "file" part in the image library.
func (app *adminApplication) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	if app.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, app.maxUpload+maxFormMemory)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			err = fmt.Errorf("%w: expected a multipart/form-data upload", cms.ErrInvalid)
		} else {
			err = formError(err)
		}
		app.errorResponse(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		app.errorResponse(w, r, schema.ValidationErrors{{Field: "file", Message: "A file is required"}})
		return
	}
	defer file.Close()

	img, err := app.cms.UploadImage(header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, img)
}

func (app *adminApplication) deleteImageHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.cms.DeleteImage(chi.URLParam(r, "id")); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// storeAttachment saves the file an input picked during a form submission and
// returns its public URL. Image fields only accept images.
func (app *adminApplication) storeAttachment(scope *form.Scope, in *form.Input) (string, error) {
	fh, ok := scope.File(in.Key)
	if !ok {
		return "", fmt.Errorf("%w: no file attached to %s", cms.ErrInvalid, in.Key)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload for %s: %w", in.Key, err)
	}
	defer f.Close()

	upload := app.cms.SaveUpload
	if in.Field.Type == schema.TypeImage {
		upload = app.cms.UploadImage
	}
	img, err := upload(fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		var verrs schema.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs {
				e.Field = in.Key
			}
		}
		return "", err
	}
	app.logger.Info("Stored form upload", "field", in.Key, "url", img.URL)
	return img.URL, nil
}
