package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, folder_path, gallery_name, host, template_name, status, gallery_id, gallery_url, total_images, uploaded_images, total_bytes, uploaded_bytes, uploaded_files_json, failures_json, error_message, progress_percent, progress_message, created_at, updated_at, started_at, completed_at, last_heartbeat"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		folderPath       string
		galleryName      sql.NullString
		host             string
		templateName     sql.NullString
		statusStr        string
		galleryID        sql.NullString
		galleryURL       sql.NullString
		totalImages      sql.NullInt64
		uploadedImages   sql.NullInt64
		totalBytes       sql.NullInt64
		uploadedBytes    sql.NullInt64
		uploadedFiles    sql.NullString
		failures         sql.NullString
		errorMessage     sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		startedRaw       sql.NullString
		completedRaw     sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&folderPath,
		&galleryName,
		&host,
		&templateName,
		&statusStr,
		&galleryID,
		&galleryURL,
		&totalImages,
		&uploadedImages,
		&totalBytes,
		&uploadedBytes,
		&uploadedFiles,
		&failures,
		&errorMessage,
		&progressPercent,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                id,
		FolderPath:        folderPath,
		GalleryName:       galleryName.String,
		Host:              host,
		TemplateName:      templateName.String,
		Status:            Status(statusStr),
		GalleryID:         galleryID.String,
		GalleryURL:        galleryURL.String,
		TotalImages:       int(totalImages.Int64),
		UploadedImages:    int(uploadedImages.Int64),
		TotalBytes:        totalBytes.Int64,
		UploadedBytes:     uploadedBytes.Int64,
		UploadedFilesJSON: uploadedFiles.String,
		FailuresJSON:      failures.String,
		ErrorMessage:      errorMessage.String,
		ProgressPercent:   progressPercent.Float64,
		ProgressMessage:   progressMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			item.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			item.CompletedAt = &completed
		}
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
