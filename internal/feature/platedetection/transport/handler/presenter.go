package handler

import (
	"fmt"
	"time"

	"parking_backend/internal/api"
	"parking_backend/internal/feature/platedetection/domain/entity"
)

func toUploadResponse(res *entity.IngestResult) api.UploadResponse {
	out := api.UploadResponse{
		Status:   statusNoPlate,
		CameraID: res.CameraID,
		File:     res.File,
		FileURL:  res.FileURL,
		SceneURL: res.SceneURL,
		Message:  "Image processed but no license plates found",
		Warnings: res.Warnings,
	}
	if !res.HasPlates() {
		return out
	}

	out.Status = statusOK
	out.Message = fmt.Sprintf("Successfully detected %d plate(s)", len(res.Plates))
	out.Plates = make([]api.PlateResponse, 0, len(res.Plates))
	for _, p := range res.Plates {
		out.Plates = append(out.Plates, api.PlateResponse{
			File:       p.File,
			Text:       p.Text,
			PlateURL:   p.PlateURL,
			Confidence: p.Confidence,
		})
	}
	return out
}

func toJobResponse(job *entity.Job) api.JobResponse {
	out := api.JobResponse{
		JobID:     job.ID,
		CameraID:  job.CameraID,
		Status:    string(job.Status),
		Error:     job.Error,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if job.Result != nil {
		res := toUploadResponse(job.Result)
		out.Result = &res
	}
	return out
}

func toRecordResponse(r entity.PlateRecord) api.RecordResponse {
	return api.RecordResponse{
		ID:         r.ID,
		CameraID:   r.CameraID,
		PlateText:  r.PlateText,
		Confidence: r.Confidence,
		PlateURL:   r.PlateURL,
		SceneURL:   r.SceneURL,
		Timestamp:  r.Timestamp.UTC().Format(time.RFC3339),
		Status:     r.Status,
	}
}
