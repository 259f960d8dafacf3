package client

import "fmt"

// Workload represents a workload description stored on the portal
type Workload struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	FilePath        string `json:"file_path,omitempty"`
	FileSize        int64  `json:"file_size,omitempty"`
	FileType        string `json:"file_type,omitempty"`
	NbRes           int    `json:"nb_res,omitempty"`
	CreatedBy       uint   `json:"created_by,omitempty"`
	CreatorUsername string `json:"creator_username,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// Platform represents a platform topology stored on the portal
type Platform struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	FilePath        string `json:"file_path,omitempty"`
	FileSize        int64  `json:"file_size,omitempty"`
	FileType        string `json:"file_type,omitempty"`
	NbHosts         int    `json:"nb_hosts,omitempty"`
	NbClusters      int    `json:"nb_clusters,omitempty"`
	CreatedBy       uint   `json:"created_by,omitempty"`
	CreatorUsername string `json:"creator_username,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// Strategy represents a scheduling-policy script stored on the portal
type Strategy struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	FilePath        string `json:"file_path,omitempty"`
	FileSize        int64  `json:"file_size,omitempty"`
	FileType        string `json:"file_type,omitempty"`
	NbFiles         int    `json:"nb_files,omitempty"`
	MainEntry       string `json:"main_entry,omitempty"`
	CreatedBy       uint   `json:"created_by,omitempty"`
	CreatorUsername string `json:"creator_username,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// UpdateAssetRequest carries partial metadata updates for a file entity
type UpdateAssetRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Download points at a stored file on the portal host
type Download struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
}

// ListWorkloads returns workloads with skip/limit pagination
func (c *Client) ListWorkloads(skip, limit int) ([]Workload, error) {
	return getList[Workload](c, listPath("/api/workloads", skip, limit))
}

// GetWorkload returns a single workload by ID
func (c *Client) GetWorkload(id uint) (*Workload, error) {
	var workload Workload
	if err := c.getJSON(fmt.Sprintf("/api/workloads/%d", id), &workload); err != nil {
		return nil, err
	}
	return &workload, nil
}

// CreateWorkload uploads a workload JSON file
func (c *Client) CreateWorkload(name, description, filePath string) (*Workload, error) {
	var workload Workload
	if err := c.uploadFile("POST", "/api/workloads", name, description, filePath, &workload); err != nil {
		return nil, err
	}
	return &workload, nil
}

// UpdateWorkload updates workload metadata
func (c *Client) UpdateWorkload(id uint, req UpdateAssetRequest) (*Workload, error) {
	var workload Workload
	if err := c.sendJSON("PUT", fmt.Sprintf("/api/workloads/%d", id), req, &workload); err != nil {
		return nil, err
	}
	return &workload, nil
}

// ReplaceWorkloadFile replaces the stored file of a workload
func (c *Client) ReplaceWorkloadFile(id uint, filePath string) (*Workload, error) {
	var workload Workload
	if err := c.uploadFile("PUT", fmt.Sprintf("/api/workloads/%d/file", id), "", "", filePath, &workload); err != nil {
		return nil, err
	}
	return &workload, nil
}

// DeleteWorkload removes a workload and its stored file
func (c *Client) DeleteWorkload(id uint) error {
	return c.deleteJSON(fmt.Sprintf("/api/workloads/%d", id), nil)
}

// DownloadWorkload returns the stored file location of a workload
func (c *Client) DownloadWorkload(id uint) (*Download, error) {
	var dl Download
	if err := c.getJSON(fmt.Sprintf("/api/workloads/%d/download", id), &dl); err != nil {
		return nil, err
	}
	return &dl, nil
}

// ListPlatforms returns platforms with skip/limit pagination
func (c *Client) ListPlatforms(skip, limit int) ([]Platform, error) {
	return getList[Platform](c, listPath("/api/platforms", skip, limit))
}

// GetPlatform returns a single platform by ID
func (c *Client) GetPlatform(id uint) (*Platform, error) {
	var platform Platform
	if err := c.getJSON(fmt.Sprintf("/api/platforms/%d", id), &platform); err != nil {
		return nil, err
	}
	return &platform, nil
}

// CreatePlatform uploads a platform XML file
func (c *Client) CreatePlatform(name, description, filePath string) (*Platform, error) {
	var platform Platform
	if err := c.uploadFile("POST", "/api/platforms", name, description, filePath, &platform); err != nil {
		return nil, err
	}
	return &platform, nil
}

// UpdatePlatform updates platform metadata
func (c *Client) UpdatePlatform(id uint, req UpdateAssetRequest) (*Platform, error) {
	var platform Platform
	if err := c.sendJSON("PUT", fmt.Sprintf("/api/platforms/%d", id), req, &platform); err != nil {
		return nil, err
	}
	return &platform, nil
}

// ReplacePlatformFile replaces the stored file of a platform
func (c *Client) ReplacePlatformFile(id uint, filePath string) (*Platform, error) {
	var platform Platform
	if err := c.uploadFile("PUT", fmt.Sprintf("/api/platforms/%d/file", id), "", "", filePath, &platform); err != nil {
		return nil, err
	}
	return &platform, nil
}

// DeletePlatform removes a platform and its stored file
func (c *Client) DeletePlatform(id uint) error {
	return c.deleteJSON(fmt.Sprintf("/api/platforms/%d", id), nil)
}

// DownloadPlatform returns the stored file location of a platform
func (c *Client) DownloadPlatform(id uint) (*Download, error) {
	var dl Download
	if err := c.getJSON(fmt.Sprintf("/api/platforms/%d/download", id), &dl); err != nil {
		return nil, err
	}
	return &dl, nil
}

// ListStrategies returns strategies with skip/limit pagination
func (c *Client) ListStrategies(skip, limit int) ([]Strategy, error) {
	return getList[Strategy](c, listPath("/api/strategies", skip, limit))
}

// GetStrategy returns a single strategy by ID
func (c *Client) GetStrategy(id uint) (*Strategy, error) {
	var strategy Strategy
	if err := c.getJSON(fmt.Sprintf("/api/strategies/%d", id), &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

// CreateStrategy uploads a strategy script
func (c *Client) CreateStrategy(name, description, filePath string) (*Strategy, error) {
	var strategy Strategy
	if err := c.uploadFile("POST", "/api/strategies", name, description, filePath, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

// UpdateStrategy updates strategy metadata
func (c *Client) UpdateStrategy(id uint, req UpdateAssetRequest) (*Strategy, error) {
	var strategy Strategy
	if err := c.sendJSON("PUT", fmt.Sprintf("/api/strategies/%d", id), req, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

// ReplaceStrategyFile replaces the stored file of a strategy
func (c *Client) ReplaceStrategyFile(id uint, filePath string) (*Strategy, error) {
	var strategy Strategy
	if err := c.uploadFile("PUT", fmt.Sprintf("/api/strategies/%d/file", id), "", "", filePath, &strategy); err != nil {
		return nil, err
	}
	return &strategy, nil
}

// DeleteStrategy removes a strategy and its stored file
func (c *Client) DeleteStrategy(id uint) error {
	return c.deleteJSON(fmt.Sprintf("/api/strategies/%d", id), nil)
}

// DownloadStrategy returns the stored file location of a strategy
func (c *Client) DownloadStrategy(id uint) (*Download, error) {
	var dl Download
	if err := c.getJSON(fmt.Sprintf("/api/strategies/%d/download", id), &dl); err != nil {
		return nil, err
	}
	return &dl, nil
}
