package model

// ImageInfo 图像元数据
type ImageInfo struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// CategoryInfo 类别注册信息
type CategoryInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	SuperCategory string `json:"supercategory"`
}

// SegmentationSet 单张图像的标注集合
type SegmentationSet struct {
	Images      []ImageInfo  `json:"images"`
	Annotations []Annotation `json:"annotations"`
}

// DataPayload 后端返回的单张图像数据
type DataPayload struct {
	ImageName    string          `json:"image_name"`
	ImagePath    string          `json:"image_path"`
	Idx          int             `json:"idx"`
	Segmentation SegmentationSet `json:"segmentation"`
	CategoryInfo []CategoryInfo  `json:"category_info"`
}

// ProjectData 保存到后端的单张图像数据
type ProjectData struct {
	Images       []ImageInfo    `json:"images"`
	Annotations  []Annotation   `json:"annotations"`
	CategoryInfo []CategoryInfo `json:"category_info"`
}

// Prompt labels.
const (
	PromptNegative = 0
	PromptPositive = 1
)

// PromptPoint 交互式提示点
type PromptPoint struct {
	ImageX int `json:"imageX"`
	ImageY int `json:"imageY"`
	Label  int `json:"label"`
}

// AnnotatedImage 导出的标注图像
type AnnotatedImage struct {
	ImageName    string `json:"image_name"`
	EncodedImage string `json:"encoded_image"` // data:image/png;base64,...
}
